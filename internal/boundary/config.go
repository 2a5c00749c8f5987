package boundary

import "majestik.world/internal/sim/core"

// GameMode mirrors core.GameMode with fixed discriminants for the C ABI.
type GameMode int32

const (
	GameModeServer       GameMode = 0
	GameModeClient       GameMode = 1
	GameModeSingleplayer GameMode = 2
)

func gameModeFromRaw(raw int32) (core.GameMode, bool) {
	switch GameMode(raw) {
	case GameModeServer:
		return core.GameModeServer, true
	case GameModeClient:
		return core.GameModeClient, true
	case GameModeSingleplayer:
		return core.GameModeSingleplayer, true
	default:
		return 0, false
	}
}

func gameModeToBoundary(m core.GameMode) GameMode {
	switch m {
	case core.GameModeClient:
		return GameModeClient
	case core.GameModeSingleplayer:
		return GameModeSingleplayer
	default:
		return GameModeServer
	}
}

// Seed baked into cores created over the boundary. The config struct crossing
// the ABI carries no seed field; hosts needing a different world roll their
// own build of the bridge.
const DefaultSeed int64 = 1337

// Config is the creation payload crossing the boundary. GameMode is the raw
// discriminant as received from the host; values outside the declared modes
// make create return ResultInvalidGameMode.
type Config struct {
	MapSizeLgX          uint32
	MapSizeLgY          uint32
	SeaLevel            int32
	DayCycleCoefficient float64
	GameMode            int32
}

// ConfigDefaults is a unit-chunk map, sea level 0, realtime day cycle,
// server mode.
func ConfigDefaults() Config {
	return Config{
		MapSizeLgX:          1,
		MapSizeLgY:          1,
		SeaLevel:            0,
		DayCycleCoefficient: 1.0,
		GameMode:            int32(GameModeServer),
	}
}

func (c Config) toInitConfig() (core.InitConfig, Result) {
	mode, ok := gameModeFromRaw(c.GameMode)
	if !ok {
		return core.InitConfig{}, ResultInvalidGameMode
	}
	return core.InitConfig{
		MapSizeLgX:          c.MapSizeLgX,
		MapSizeLgY:          c.MapSizeLgY,
		SeaLevel:            c.SeaLevel,
		DayCycleCoefficient: c.DayCycleCoefficient,
		GameMode:            mode,
		Seed:                DefaultSeed,
	}, ResultSuccess
}
