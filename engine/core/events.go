package core

// System internal event codes. Applications should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	// Context data is a *SystemEvent carrying the new dimensions.
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// SystemEvent carries window geometry for EVENT_CODE_RESIZED.
type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

// EventContext is the payload handed to every listener.
type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

// FnOnEvent is invoked for every fired event of a registered code.
type FnOnEvent func(context EventContext)

type eventCodeEntry struct {
	callbacks []FnOnEvent
}

type eventSystemState struct {
	// Lookup table for event codes.
	registered [MAX_EVENT_CODE + 1]eventCodeEntry
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{}
	return true
}

func EventSystemShutdown() error {
	// Any objects pointed to by listeners are destroyed on their own.
	eventState = nil
	return nil
}

// EventRegister adds a listener for the provided code. Dispatch happens in
// registration order on the firing goroutine.
func EventRegister(code SystemEventCode, onEvent FnOnEvent) bool {
	if eventState == nil || onEvent == nil {
		return false
	}
	if code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	entry := &eventState.registered[code]
	entry.callbacks = append(entry.callbacks, onEvent)
	return true
}

// EventFire delivers the context to every listener of its code. Returns false
// when nothing is registered for the code.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	if context.Type < 0 || context.Type > MAX_EVENT_CODE {
		return false
	}
	entry := &eventState.registered[context.Type]
	if len(entry.callbacks) == 0 {
		return false
	}
	for _, cb := range entry.callbacks {
		cb(context)
	}
	return true
}
