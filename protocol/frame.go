// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single payload. A larger declared length means the
// stream is out of sync and cannot be recovered.
const MaxFrameSize = 64 << 10

const headerSize = 4

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// AppendFrame encodes m and appends the length envelope plus payload to dst.
func AppendFrame(dst []byte, m Message) ([]byte, error) {
	payload, err := Encode(m)
	if err != nil {
		return dst, err
	}
	if len(payload) > MaxFrameSize {
		return dst, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// WriteFrame writes m to w in a single Write call.
func WriteFrame(w io.Writer, m Message) error {
	buf, err := AppendFrame(nil, m)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Reader reads enveloped frames from a stream.
type Reader struct {
	r   *bufio.Reader
	hdr [headerSize]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame returns the next raw payload. io.EOF is returned only on a clean
// boundary; a stream cut mid-frame yields io.ErrUnexpectedEOF.
func (r *Reader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(r.hdr[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// ReadMessage reads and decodes the next frame. A decode failure is returned
// wrapped in ErrMalformed and leaves the stream positioned at the next frame,
// so the caller may continue reading.
func (r *Reader) ReadMessage() (Message, error) {
	payload, err := r.ReadFrame()
	if err != nil {
		return Message{}, err
	}
	return Decode(payload)
}
