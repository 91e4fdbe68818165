// Tests for the frame codec covering header layout, partial reads, multiple
// sequential frames, size limits and opcode names.
package discord

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// ///////////////////////////////////////////////
// EncodeFrame
// ///////////////////////////////////////////////

func TestEncodeFrame(t *testing.T) {
	payload := []byte(`{"v":1,"client_id":"12345"}`)
	frame, err := EncodeFrame(OpHandshake, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(frame) != frameHeaderSize+len(payload) {
		t.Fatalf("frame length = %d, want %d", len(frame), frameHeaderSize+len(payload))
	}
	if op := Opcode(binary.LittleEndian.Uint32(frame[0:4])); op != OpHandshake {
		t.Fatalf("opcode = %d, want %d", op, OpHandshake)
	}
	if n := binary.LittleEndian.Uint32(frame[4:8]); n != uint32(len(payload)) {
		t.Fatalf("length = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(frame[8:], payload) {
		t.Fatalf("payload = %q, want %q", frame[8:], payload)
	}
}

func TestEncodeFrame_SizeLimit(t *testing.T) {
	if _, err := EncodeFrame(OpFrame, make([]byte, MaxPayloadSize)); err != nil {
		t.Fatalf("exactly MaxPayloadSize should encode: %v", err)
	}
	_, err := EncodeFrame(OpFrame, make([]byte, MaxPayloadSize+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

// ///////////////////////////////////////////////
// WriteFrame / ReadFrame
// ///////////////////////////////////////////////

func TestWriteReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		op      Opcode
		payload []byte
	}{
		{"handshake", OpHandshake, []byte(`{"v":1}`)},
		{"frame", OpFrame, []byte(`{"cmd":"SET_ACTIVITY"}`)},
		{"ping", OpPing, []byte(`{"n":1}`)},
		{"empty", OpClose, []byte{}},
		{"binary", OpFrame, []byte{0x00, 0xFF, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.op, tt.payload); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			f, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if f.Op != tt.op {
				t.Errorf("Op = %v, want %v", f.Op, tt.op)
			}
			if !bytes.Equal(f.Payload, tt.payload) {
				t.Errorf("Payload = %v, want %v", f.Payload, tt.payload)
			}
		})
	}
}

// slowReader returns data one byte at a time, simulating partial reads.
type slowReader struct {
	data []byte
	pos  int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestReadFrame_Partial(t *testing.T) {
	want := []byte(`{"hello":"world"}`)
	encoded, _ := EncodeFrame(OpFrame, want)

	f, err := ReadFrame(&slowReader{data: encoded})
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(f.Payload, want) {
		t.Fatalf("Payload = %q, want %q", f.Payload, want)
	}
}

func TestReadFrame_Sequential(t *testing.T) {
	var buf bytes.Buffer
	WriteFrame(&buf, OpFrame, []byte("one"))
	WriteFrame(&buf, OpPong, []byte("two"))

	first, err := ReadFrame(&buf)
	if err != nil || string(first.Payload) != "one" {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := ReadFrame(&buf)
	if err != nil || second.Op != OpPong || string(second.Payload) != "two" {
		t.Fatalf("second = %+v, %v", second, err)
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after last frame, got %v", err)
	}
}

func TestReadFrame_Errors(t *testing.T) {
	oversized := make([]byte, 8)
	binary.LittleEndian.PutUint32(oversized[0:4], uint32(OpFrame))
	binary.LittleEndian.PutUint32(oversized[4:8], MaxPayloadSize+1)

	truncated := make([]byte, 8)
	binary.LittleEndian.PutUint32(truncated[4:8], 100)
	truncated = append(truncated, "short"...)

	tests := []struct {
		name string
		data []byte
		is   error
	}{
		{"oversized", oversized, ErrPayloadTooLarge},
		{"truncated header", []byte{0, 0, 0, 0}, io.ErrUnexpectedEOF},
		{"truncated payload", truncated, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.is) {
				t.Fatalf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestOpcodeString(t *testing.T) {
	tests := map[Opcode]string{
		OpHandshake: "HANDSHAKE",
		OpFrame:     "FRAME",
		OpClose:     "CLOSE",
		OpPing:      "PING",
		OpPong:      "PONG",
		Opcode(42):  "OP(42)",
	}
	for op, want := range tests {
		if got := op.String(); got != want {
			t.Errorf("Opcode(%d).String() = %q, want %q", op, got, want)
		}
	}
}
