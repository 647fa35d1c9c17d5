package message

// Envelope is one message as delivered by the transport, stripped of any
// broker-specific handle.
type Envelope struct {
	Subject  string
	Data     []byte
	Headers  map[string][]string
	Sequence uint64

	// EventTimestamp is the application event time in Unix milliseconds,
	// 0 when the publisher did not set one.
	EventTimestamp int64
}

// HasEventTimestamp reports whether the publisher set an event timestamp.
func (e *Envelope) HasEventTimestamp() bool {
	return e != nil && e.EventTimestamp > 0
}
