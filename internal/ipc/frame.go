// Package ipc implements the length-prefixed binary frame protocol used by
// the daemon and its clients: a four-byte little-endian length followed by
// that many bytes of JSON payload. The transport is otherwise byte-transparent.
package ipc

import (
	"encoding/binary"
	"io"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
)

// MaxFrameSize is the largest payload a frame may carry.
const MaxFrameSize = 16 * 1024 * 1024

// WriteFrame writes payload as one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return cgerrors.ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return cgerrors.Wrap(err, cgerrors.ErrorTypeIPC, cgerrors.SeverityMedium, "frame write failed")
	}
	if _, err := w.Write(payload); err != nil {
		return cgerrors.Wrap(err, cgerrors.ErrorTypeIPC, cgerrors.SeverityMedium, "frame write failed")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r. A declared length
// exceeding MaxFrameSize is rejected before any payload bytes are read.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, cgerrors.Wrap(err, cgerrors.ErrorTypeIPC, cgerrors.SeverityMedium, "frame read failed")
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, cgerrors.ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, cgerrors.Wrap(err, cgerrors.ErrorTypeIPC, cgerrors.SeverityMedium, "frame read failed")
	}
	return payload, nil
}
