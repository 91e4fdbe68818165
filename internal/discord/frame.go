package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Opcode is a Discord IPC frame opcode.
type Opcode uint32

const (
	OpHandshake Opcode = 0
	OpFrame     Opcode = 1
	OpClose     Opcode = 2
	OpPing      Opcode = 3
	OpPong      Opcode = 4

	// frameHeaderSize is the 4-byte LE opcode plus the 4-byte LE length.
	frameHeaderSize = 8

	// MaxPayloadSize is the maximum allowed payload size (1 MB).
	MaxPayloadSize = 1 << 20

	// maxIPCSlots is the number of IPC socket slots Discord may listen on (0-9).
	maxIPCSlots = 10
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return "OP(" + strconv.FormatUint(uint64(o), 10) + ")"
	}
}

// ErrPayloadTooLarge is returned when a frame payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrIPCNotAvailable is returned when no Discord IPC socket can be reached.
var ErrIPCNotAvailable = errors.New("discord IPC not available")

// Frame is one decoded IPC frame.
type Frame struct {
	Op      Opcode
	Payload []byte
}

// ///////////////////////////////////////////////
// Encoding
// ///////////////////////////////////////////////

// EncodeFrame builds a Discord IPC frame: [4-byte LE opcode][4-byte LE length][payload].
func EncodeFrame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	return buf, nil
}

// WriteFrame encodes and writes one frame in a single Write call.
func WriteFrame(w io.Writer, op Opcode, payload []byte) error {
	buf, err := EncodeFrame(op, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing %s frame: %w", op, err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Decoding
// ///////////////////////////////////////////////

// ReadFrame reads exactly one frame from r, tolerating partial reads.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, fmt.Errorf("reading frame header: %w", err)
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, MaxPayloadSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("reading frame payload: %w", err)
	}
	return Frame{Op: op, Payload: payload}, nil
}
