package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload ReadFrame will accept, per spec.md §4.1.
const MaxFrameSize = 16 * 1024 * 1024

// HeaderSize is the length of the frame length-prefix: one big-endian uint32.
const HeaderSize = 4

// WriteFrame writes a length-prefixed payload: a 4-byte big-endian length
// followed by exactly that many bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("protocol: writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("protocol: writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed payload. A clean EOF at the frame
// boundary (no bytes read yet) returns (nil, nil). An EOF in the middle of
// a frame, or a declared length over MaxFrameSize, is an error.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("protocol: reading frame header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared length %d", ErrFrameTooLarge, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("protocol: reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteClientMessage encodes and frames a client→server message.
func WriteClientMessage(w io.Writer, msg ClientMessage) error {
	payload, err := EncodeClientMessage(msg)
	if err != nil {
		return fmt.Errorf("protocol: encoding client message: %w", err)
	}
	return WriteFrame(w, payload)
}

// ReadClientMessage reads and decodes one client→server message.
// Returns (nil, nil) on clean EOF.
func ReadClientMessage(r io.Reader) (ClientMessage, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	return DecodeClientMessage(payload)
}

// WriteServerMessage encodes and frames a server→client message.
func WriteServerMessage(w io.Writer, msg ServerMessage) error {
	payload, err := EncodeServerMessage(msg)
	if err != nil {
		return fmt.Errorf("protocol: encoding server message: %w", err)
	}
	return WriteFrame(w, payload)
}

// ReadServerMessage reads and decodes one server→client message.
// Returns (nil, nil) on clean EOF.
func ReadServerMessage(r io.Reader) (ServerMessage, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	return DecodeServerMessage(payload)
}
