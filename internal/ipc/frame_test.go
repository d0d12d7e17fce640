package ipc_test

import (
	"bytes"
	"testing"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"method":"ping"}`)
	require.NoError(t, ipc.WriteFrame(&buf, payload))

	got, err := ipc.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriteFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	payload := make([]byte, ipc.MaxFrameSize+1)
	err := ipc.WriteFrame(&buf, payload)
	assert.ErrorIs(t, err, cgerrors.ErrFrameTooLarge)
}

func TestReadFrameRejectsDeclaredOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	lenBuf := []byte{0, 0, 0, 0}
	// Declare a length one byte over the cap, little-endian.
	oversized := uint32(ipc.MaxFrameSize + 1)
	lenBuf[0] = byte(oversized)
	lenBuf[1] = byte(oversized >> 8)
	lenBuf[2] = byte(oversized >> 16)
	lenBuf[3] = byte(oversized >> 24)
	buf.Write(lenBuf)

	_, err := ipc.ReadFrame(&buf)
	assert.ErrorIs(t, err, cgerrors.ErrFrameTooLarge)
}

func TestReadFrameRejectsTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ipc.WriteFrame(&buf, []byte("hello")))
	truncated := buf.Bytes()[:buf.Len()-2]

	_, err := ipc.ReadFrame(bytes.NewReader(truncated))
	assert.Error(t, err)
}
