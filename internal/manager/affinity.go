// Package manager implements registration, start-up sequencing, thread
// placement, and orderly shutdown for a set of actors and groups.
package manager

import "github.com/vane-rt/vane/internal/rtlog"

// SchedClass selects an OS scheduling policy for a worker's OS thread
// (spec §6: "scheduling class is one of {default, FIFO, round-robin}").
type SchedClass int

const (
	ClassDefault SchedClass = iota
	ClassFIFO
	ClassRoundRobin
)

func (c SchedClass) String() string {
	switch c {
	case ClassFIFO:
		return "fifo"
	case ClassRoundRobin:
		return "round-robin"
	default:
		return "default"
	}
}

// Placement is the thread placement an actor was manage()'d with: a CPU
// affinity set, a scheduling priority, and a scheduling class. The zero
// value places a worker with no affinity and default scheduling.
type Placement struct {
	Affinity []int
	Priority int
	Class    SchedClass
}

// applyPlacement pins the calling OS thread (the caller must already hold
// it via runtime.LockOSThread) to p's CPU set and scheduling class.
// Failures are soft: logged, never fatal, per spec §4.8.
func applyPlacement(log rtlog.Logger, name string, p Placement) {
	if len(p.Affinity) > 0 {
		if err := setAffinity(p.Affinity); err != nil {
			log.Warn("actor %s: affinity setup failed: %v", name, err)
		}
	}
	if p.Priority > 0 {
		if err := setScheduling(p.Class, p.Priority); err != nil {
			log.Warn("actor %s: scheduling class %s unavailable: %v", name, p.Class, err)
		}
	}
}
