package core

import (
	"errors"
	"math"
)

// GameMode selects which gameplay rules the core runs under.
type GameMode int

const (
	GameModeServer GameMode = iota
	GameModeClient
	GameModeSingleplayer
)

func (m GameMode) String() string {
	switch m {
	case GameModeServer:
		return "server"
	case GameModeClient:
		return "client"
	case GameModeSingleplayer:
		return "singleplayer"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the declared modes.
func (m GameMode) Valid() bool {
	return m == GameModeServer || m == GameModeClient || m == GameModeSingleplayer
}

var (
	ErrInvalidMapSize             = errors.New("map_size_lg outside supported range")
	ErrInvalidDayCycleCoefficient = errors.New("day_cycle_coefficient must be finite and positive")
	ErrInvalidGameMode            = errors.New("unknown game mode")
)

// Per-axis ceiling on map_size_lg. At 15 one axis spans 32768 chunks; the
// summed ceiling keeps the total chunk count within uint32 range.
const (
	MaxMapSizeLgAxis = 15
	MaxMapSizeLgSum  = 30
)

// InitConfig configures a new Core. MapSizeLg values are base-two logarithms
// of the map extent in chunks.
type InitConfig struct {
	MapSizeLgX          uint32
	MapSizeLgY          uint32
	SeaLevel            int32
	DayCycleCoefficient float64
	GameMode            GameMode
	Seed                int64
}

// DefaultInitConfig is a unit-chunk map at sea level 0 with a realtime day
// cycle, running in server mode.
func DefaultInitConfig() InitConfig {
	return InitConfig{
		MapSizeLgX:          1,
		MapSizeLgY:          1,
		SeaLevel:            0,
		DayCycleCoefficient: 1.0,
		GameMode:            GameModeServer,
		Seed:                1337,
	}
}

// Validate checks every field before any state is constructed, so Core
// construction is all-or-nothing.
func (c InitConfig) Validate() error {
	if !c.GameMode.Valid() {
		return ErrInvalidGameMode
	}
	if math.IsNaN(c.DayCycleCoefficient) || math.IsInf(c.DayCycleCoefficient, 0) ||
		c.DayCycleCoefficient <= 0 {
		return ErrInvalidDayCycleCoefficient
	}
	if c.MapSizeLgX > MaxMapSizeLgAxis || c.MapSizeLgY > MaxMapSizeLgAxis ||
		c.MapSizeLgX+c.MapSizeLgY > MaxMapSizeLgSum {
		return ErrInvalidMapSize
	}
	return nil
}
