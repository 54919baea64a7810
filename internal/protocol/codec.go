package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxFrameSize bounds how many bytes the decoder will buffer while waiting
// for a frame delimiter. A peer that exceeds it is not speaking the protocol.
const MaxFrameSize = 64 * 1024

// Delimiter terminates every frame on the wire.
const Delimiter = '\n'

// ErrFrameTooLarge is returned when a connection buffers more than
// MaxFrameSize bytes without a delimiter. It is unrecoverable for that
// connection.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Encode serializes a message and appends the frame delimiter.
func Encode(message interface{}) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("error encoding %T: %w", message, err)
	}
	return append(data, Delimiter), nil
}

// Decode unmarshals a single frame into the provided message struct.
func Decode(frame []byte, message interface{}) error {
	if err := json.Unmarshal(frame, message); err != nil {
		return fmt.Errorf("error decoding frame: %w", err)
	}
	return nil
}

type envelope struct {
	Type string `json:"type"`
}

// Kind extracts the type discriminator from a frame without fully decoding
// it. An error means the frame is not a valid message and should be dropped.
func Kind(frame []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", fmt.Errorf("undecodable frame: %w", err)
	}
	if env.Type == "" {
		return "", errors.New("frame missing type field")
	}
	return env.Type, nil
}

// Decoder accumulates bytes from a stream and splits complete frames off the
// front. An incomplete trailing frame stays buffered until more bytes arrive;
// a frame that fails to parse is the caller's to drop, which leaves any valid
// frames behind it intact.
type Decoder struct {
	buf []byte
}

// Push appends freshly read bytes and returns every complete frame now
// available, without their delimiters. It returns ErrFrameTooLarge (and
// discards the buffer) if the unterminated remainder exceeds MaxFrameSize.
func (d *Decoder) Push(data []byte) ([][]byte, error) {
	d.buf = append(d.buf, data...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(d.buf, Delimiter)
		if i < 0 {
			break
		}
		frame := make([]byte, i)
		copy(frame, d.buf[:i])
		d.buf = d.buf[i+1:]

		if frame = bytes.TrimSpace(frame); len(frame) > 0 {
			frames = append(frames, frame)
		}
	}

	if len(d.buf) > MaxFrameSize {
		d.buf = nil
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}
