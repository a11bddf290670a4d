package parser

// parseCommand decodes the body of a codec 12/13/15 frame: a 1-byte
// message type followed by a 4-byte payload length and the payload
// itself. The payload is either UTF-8 text (event reports) or a
// binary snapshot; telling the two apart is the caller's job.
func parseCommand(r *byteReader) (*Command, error) {
	commandType, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	size, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	payload, err := r.readBytes(int(size))
	if err != nil {
		return nil, err
	}
	return &Command{Type: commandType, Payload: payload}, nil
}

// IsReport reports whether a command message carries device-originated
// content (a text event or a snapshot) rather than protocol chatter.
func (c *Command) IsReport() bool {
	return c.Type == CommandTypeRequest || c.Type == CommandTypeResponse
}
