package executor

import (
	"fmt"
	"time"

	"github.com/evan-idocoding/mexec/rt/managed"
)

// State is the lifecycle state of an Executor.
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ScheduleState is the state of a recurring registration.
type ScheduleState int

const (
	// ScheduleWaiting means the next instance waits for its run time.
	ScheduleWaiting ScheduleState = iota
	// ScheduleRunning means an instance is queued or running.
	ScheduleRunning
	// ScheduleDone means no further instance will be created.
	ScheduleDone
)

func (s ScheduleState) String() string {
	switch s {
	case ScheduleWaiting:
		return "waiting"
	case ScheduleRunning:
		return "running"
	case ScheduleDone:
		return "done"
	default:
		return fmt.Sprintf("ScheduleState(%d)", int(s))
	}
}

// ScheduleStatus is a point-in-time view of a Schedule.
type ScheduleStatus struct {
	Name       string
	State      ScheduleState
	Registered time.Time

	// NextRun is the run time of the pending or running instance. Zero once done.
	NextRun time.Time
	// CurrentID is the execution id of the pending or running instance.
	CurrentID string

	RunCount     uint64
	SuccessCount uint64
	FailCount    uint64
	SkipCount    uint64
	CancelCount  uint64

	// Last is the most recent execution (nil before the first one ended).
	Last *managed.LastExecution

	// Err is the termination cause of a done schedule ("" on natural termination).
	Err string
}

// Snapshot is a point-in-time view of an Executor.
type Snapshot struct {
	Name  string
	State State

	// Submitted counts accepted execution instances (one-shot and recurring).
	Submitted uint64
	// Succeeded, Failed and Aborted count terminal outcomes. Cancelled and skipped instances
	// are in Aborted when they never started, and so are refused one-shot submissions.
	Succeeded uint64
	Failed    uint64
	Aborted   uint64

	// Pool is set when the executor runs on a WorkerPool.
	Pool *PoolStats

	// Schedules lists live (not yet done) schedules in registration order.
	Schedules []ScheduleStatus
}

// Get finds a schedule status by name.
func (s Snapshot) Get(name string) (ScheduleStatus, bool) {
	for _, st := range s.Schedules {
		if st.Name == name {
			return st, true
		}
	}
	return ScheduleStatus{}, false
}
