package protocol

// Implementation turns a byte stream into messages and back.
// The caller owns the buffer; an Implementation keeps no state between calls.
type Implementation interface {
	// Frame extracts every complete message from buffer. The unconsumed remainder
	// (a partial message, possibly empty) is returned and must be passed back in,
	// with newly received bytes appended, on the next call.
	Frame(buffer []byte) (messages []string, rest []byte, err error)
	// Encode terminates one outgoing message for the wire
	Encode(message string) []byte
}
