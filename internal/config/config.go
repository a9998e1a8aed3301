// Package config holds the Manager's configuration: default mailbox
// capacity, per-actor thread placements keyed by name, and shutdown
// timeout, loadable from
// a JSON file, plus a file-watched hot-reload path (SPEC_FULL.md §3.3).
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vane-rt/vane/internal/manager"
)

// ManagerConfig is the on-disk configuration shape for a Manager.
type ManagerConfig struct {
	DefaultMailboxCapacity int                        `json:"default_mailbox_capacity"`
	ShutdownTimeout        jsonDuration               `json:"shutdown_timeout"`
	Placements             map[string]PlacementConfig `json:"placements"`
}

// PlacementConfig is the JSON shape of one actor's thread placement.
type PlacementConfig struct {
	Affinity []int  `json:"affinity"`
	Priority int    `json:"priority"`
	Class    string `json:"class"`
}

// ToPlacement converts a PlacementConfig into a manager.Placement.
func (p PlacementConfig) ToPlacement() manager.Placement {
	class := manager.ClassDefault
	switch p.Class {
	case "fifo":
		class = manager.ClassFIFO
	case "round-robin":
		class = manager.ClassRoundRobin
	}
	return manager.Placement{Affinity: p.Affinity, Priority: p.Priority, Class: class}
}

// Default returns a ManagerConfig with spec-reasonable defaults: a 64-slot
// mailbox ring and a five-second shutdown timeout.
func Default() ManagerConfig {
	return ManagerConfig{
		DefaultMailboxCapacity: 64,
		ShutdownTimeout:        jsonDuration(5 * time.Second),
		Placements:             map[string]PlacementConfig{},
	}
}

// Load reads and parses a ManagerConfig from path, filling any unset field
// with Default()'s value.
func Load(path string) (ManagerConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return ManagerConfig{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ManagerConfig{}, err
	}
	if cfg.DefaultMailboxCapacity <= 0 {
		cfg.DefaultMailboxCapacity = 64
	}
	return cfg, nil
}

// PlacementUpdate converts every entry in cfg.Placements into a
// manager.PlacementUpdate, ready to deliver as a ConfigChanged message.
func (cfg ManagerConfig) PlacementUpdate() manager.PlacementUpdate {
	byName := make(map[string]manager.Placement, len(cfg.Placements))
	for name, p := range cfg.Placements {
		byName[name] = p.ToPlacement()
	}
	return manager.PlacementUpdate{ByName: byName}
}

// jsonDuration marshals as a Go duration string ("5s") instead of
// time.Duration's raw nanosecond integer, which is friendlier to hand-edit
// in a config file picked up by the hot-reload watcher.
type jsonDuration time.Duration

func (d jsonDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = jsonDuration(parsed)
	return nil
}

// Duration returns the shutdown timeout as a time.Duration.
func (cfg ManagerConfig) Duration() time.Duration { return time.Duration(cfg.ShutdownTimeout) }
