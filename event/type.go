package event

// EventType represents the type of an inbound event
type EventType int

const (
	// EventNone is the zero value and is never routed
	EventNone EventType = iota

	// EventRequestSubmit carries an HTTP request built outside the tick goroutine
	// Trigger: World.PushEvent from any goroutine, joins the httpclient submit inbox
	// Consumer: httpclient plugin | Payload: *httpclient.HTTPRequest
	EventRequestSubmit

	// EventSettingChange adjusts the concurrency budget cap
	// Trigger: config watcher, operator tooling
	// Consumer: httpclient plugin | Payload: *httpclient.SettingChangePayload
	EventSettingChange

	// EventShutdown asks the application loop to stop after the current tick
	// Trigger: signal handler, demo key binding
	// Consumer: App | Payload: nil
	EventShutdown
)

var typeNames = map[EventType]string{
	EventNone:          "None",
	EventRequestSubmit: "RequestSubmit",
	EventSettingChange: "SettingChange",
	EventShutdown:      "Shutdown",
}

func (t EventType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Event is a single message pushed into the Queue
type Event struct {
	Type    EventType
	Payload any
	Tick    int64 // Tick number at push time, zero when pushed before the first tick
}
