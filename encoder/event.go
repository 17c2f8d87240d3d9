package encoder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"hacksstv/sstv"
)

// EventKind classifies a job status update.
type EventKind int

const (
	// EventQueued is emitted on the submitting goroutine once a job is accepted.
	EventQueued EventKind = iota
	// EventStarted is emitted right before the calibration header is sent.
	EventStarted
	// EventLine is emitted after each scan line reaches the sink.
	EventLine
	// EventCompleted is emitted after the last line and the tail silence.
	EventCompleted
	// EventCancelled is emitted when shutdown stopped a job between lines.
	EventCancelled
	// EventFailed carries the sink or mode error that ended a job.
	EventFailed
	// EventDiscarded is emitted for queued jobs dropped at shutdown.
	EventDiscarded
)

func (k EventKind) String() string {
	switch k {
	case EventQueued:
		return "queued"
	case EventStarted:
		return "started"
	case EventLine:
		return "line"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventFailed:
		return "failed"
	case EventDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal reports whether no further events follow for the job.
func (k EventKind) Terminal() bool {
	switch k {
	case EventCompleted, EventCancelled, EventFailed, EventDiscarded:
		return true
	default:
		return false
	}
}

// JobID identifies a submitted image.
type JobID = uuid.UUID

// Event is a status update for one job.
type Event struct {
	Kind     EventKind
	Job      JobID
	Protocol sstv.Protocol
	// Line and Lines report progress for EventLine and the terminal events.
	Line  int
	Lines int
	// Pending is the queue depth after the event.
	Pending int
	Err     error
	Time    time.Time
}

// Listener receives events. Listeners run on the worker goroutine, or the
// submitting goroutine for EventQueued, and should return quickly. Events are
// delivered one at a time and a job's EventQueued always comes first. A
// listener must not call Submit.
type Listener func(Event)
