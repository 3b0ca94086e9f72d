package install

import (
	"fmt"
	"time"
)

// EventKind is the name a lifecycle event is published under.
type EventKind string

const (
	EventStarted      EventKind = "download-started"
	EventProgress     EventKind = "download-progress"
	EventHashChecking EventKind = "download-hash-checking"
	EventFinishing    EventKind = "download-finishing"
	EventDone         EventKind = "download-done"
	EventFailed       EventKind = "download-failed"
	EventCancelled    EventKind = "download-cancelled"

	EventUninstalled     EventKind = "version-uninstalled"
	EventUninstallFailed EventKind = "version-failed"
)

// Terminal reports whether k ends a run or an uninstall.
func (k EventKind) Terminal() bool {
	switch k {
	case EventDone, EventFailed, EventCancelled, EventUninstalled, EventUninstallFailed:
		return true
	}
	return false
}

// Event is one lifecycle notification of a version.
type Event struct {
	Kind    EventKind
	Version string
	RunID   string
	State   State
	// Percent is set on progress events only.
	Percent int
	// Err is set on failed and cancelled events.
	Err error
	// Warning carries a best-effort step failure on done events.
	Warning string
	Time    time.Time
}

// LegacyPayload renders the event the way older UI revisions expect it:
// "<name>:<percent>" for progress and the bare name otherwise.
func (e Event) LegacyPayload() string {
	if e.Kind == EventProgress {
		return fmt.Sprintf("%s:%d", e.Version, e.Percent)
	}
	return e.Version
}

func (e Event) String() string {
	switch {
	case e.Kind == EventProgress:
		return fmt.Sprintf("%s %s %d%%", e.Kind, e.Version, e.Percent)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Version, e.Err)
	case e.Warning != "":
		return fmt.Sprintf("%s %s (warning: %s)", e.Kind, e.Version, e.Warning)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Version)
	}
}

// Observer receives the lifecycle events of every version, in order per version.
type Observer interface {
	OnLifecycleEvent(version string, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(version string, event Event)

func (f ObserverFunc) OnLifecycleEvent(version string, event Event) {
	f(version, event)
}

// Observers fans an event out to each observer in order.
type Observers []Observer

func (o Observers) OnLifecycleEvent(version string, event Event) {
	for _, observer := range o {
		if observer != nil {
			observer.OnLifecycleEvent(version, event)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnLifecycleEvent(string, Event) {}
