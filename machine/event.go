package machine

// Event identifies an observable network occurrence that can trigger a
// state transition. The set is defined by the traffic-shaping engine
// that loads the finished machine; synthesis wires transitions under
// these keys and never interprets them.
type Event int

const (
	EventNonPaddingSent Event = iota
	EventNonPaddingRecv
	EventPaddingSent
	EventPaddingRecv
	EventBlockingBegin
	EventBlockingEnd
	EventLimitReached

	numEvents
)

var eventNames = map[Event]string{
	EventNonPaddingSent: "NonPaddingSent",
	EventNonPaddingRecv: "NonPaddingRecv",
	EventPaddingSent:    "PaddingSent",
	EventPaddingRecv:    "PaddingRecv",
	EventBlockingBegin:  "BlockingBegin",
	EventBlockingEnd:    "BlockingEnd",
	EventLimitReached:   "LimitReached",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "Unknown"
}

// Valid returns true if e is one of the recognized engine events.
func (e Event) Valid() bool {
	return e >= EventNonPaddingSent && e < numEvents
}
