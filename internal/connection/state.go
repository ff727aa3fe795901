package connection

import (
	"time"

	"reawwise/internal/waapi"
)

// State is the watcher's position in the connect loop.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Snapshot is a copy of the watcher's observable state.
type Snapshot struct {
	State   State
	Address string
	Info    waapi.Info
	Project waapi.ProjectInfo
	// ProjectStale is set when a project was loaded or closed since the
	// last project fetch.
	ProjectStale bool
	// ObjectsChanged is set when objects were created, deleted or renamed
	// since the flag was last consumed.
	ObjectsChanged bool
	Failures       int
	RetryIn        time.Duration
	LastError      string
}

// Reason tags a stale notification published on the event bus.
type Reason string

const (
	ReasonProjectLoaded Reason = "project_loaded"
	ReasonProjectClosed Reason = "project_closed"
	ReasonObjectCreated Reason = "object_created"
	ReasonObjectDeleted Reason = "object_deleted"
	ReasonObjectRenamed Reason = "object_renamed"
)

// topicReasons lists the topics subscribed while connected.
var topicReasons = []struct {
	topic  string
	reason Reason
}{
	{waapi.TopicProjectLoaded, ReasonProjectLoaded},
	{waapi.TopicProjectPreClosed, ReasonProjectClosed},
	{waapi.TopicObjectCreated, ReasonObjectCreated},
	{waapi.TopicObjectPostDeleted, ReasonObjectDeleted},
	{waapi.TopicObjectNameChanged, ReasonObjectRenamed},
}
