// Package tuning loads the optional debug-sidecar tuning file. The core
// boundary constants (delta-time ceiling, buffer coordinate cap) are fixed
// by the ABI contract and deliberately not tunable here.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Journal / index toggles within an enabled debug dir.
	JournalEnabled bool `yaml:"journal_enabled"`
	IndexEnabled   bool `yaml:"index_enabled"`

	// Observer stream shaping.
	ObserverMaxCoords    int `yaml:"observer_max_coords"`
	ObserverSendBuffer   int `yaml:"observer_send_buffer"`
	ObserverWriteBufferK int `yaml:"observer_write_buffer_kb"`

	// Index writer queue depth.
	IndexQueueDepth int `yaml:"index_queue_depth"`
}

func Defaults() Tuning {
	return Tuning{
		JournalEnabled:       true,
		IndexEnabled:         true,
		ObserverMaxCoords:    256,
		ObserverSendBuffer:   64,
		ObserverWriteBufferK: 64,
		IndexQueueDepth:      8192,
	}
}

// Load reads path, overlaying the file's values on the defaults. A missing
// file is not an error; callers pass the path unconditionally.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.ObserverMaxCoords < 0 {
		t.ObserverMaxCoords = 0
	}
	if t.ObserverSendBuffer <= 0 {
		t.ObserverSendBuffer = Defaults().ObserverSendBuffer
	}
	if t.IndexQueueDepth <= 0 {
		t.IndexQueueDepth = Defaults().IndexQueueDepth
	}
	return t, nil
}
