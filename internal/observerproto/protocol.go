// Package observerproto defines the wire messages of the debug observer
// channel: a loopback websocket feed of per-tick terrain diff summaries for
// tooling that watches a live bridge process.
package observerproto

// Version is the observer protocol version (independent of the C ABI).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection; can be
// re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Cap on coordinates echoed per diff list; larger diffs report counts only.
	MaxCoords int `json:"max_coords"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	MapSizeX uint32 `json:"map_size_x"`
	MapSizeY uint32 `json:"map_size_y"`
	SeaLevel int32  `json:"sea_level"`
	Seed     int64  `json:"seed"`
	GameMode string `json:"game_mode"`
}

// Server -> Client. Sent once per simulation tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	TimeSeconds        float64 `json:"time_seconds"`
	ProgramTimeSeconds float64 `json:"program_time_seconds"`
	TimeOfDaySeconds   float64 `json:"time_of_day_seconds"`

	Diff DiffSummary `json:"diff"`
}

// DiffSummary carries the normalized terrain diff of one tick. Coordinate
// lists are truncated to the subscriber's MaxCoords; counts are always full.
type DiffSummary struct {
	NewCount      int        `json:"new_count"`
	ModifiedCount int        `json:"modified_count"`
	RemovedCount  int        `json:"removed_count"`
	New           [][2]int32 `json:"new,omitempty"`
	Modified      [][2]int32 `json:"modified,omitempty"`
	Removed       [][2]int32 `json:"removed,omitempty"`
}
