package walog_test

import (
	"bytes"
	"testing"

	"github.com/rohankatakam/codegraph/internal/entity"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/walog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayAppliesAllRecordsInOrder(t *testing.T) {
	w := walog.NewWriter()
	w.AppendAddSymbol(entity.Symbol{ID: 1, Name: "foo", Kind: entity.KindFunction})
	w.AppendAddFile(entity.File{ID: 1, Path: "a.ts"})
	w.AppendAddCommit(entity.Commit{ID: 1, Author: "jane"})
	w.AppendAddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})
	w.AppendFileInvalidate(1)
	w.AppendCheckpoint()

	g := graph.New()
	res, err := walog.Replay(bytes.NewReader(w.Bytes()), g)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Applied)
	assert.Equal(t, 1, res.Checkpoints)
	_, invalidated := res.InvalidatedFiles[1]
	assert.True(t, invalidated)

	assert.Equal(t, 1, g.SymbolCount())
	assert.Equal(t, 1, g.FileCount())
	assert.Equal(t, 1, g.CommitCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestReplayStopsAtCRCMismatch(t *testing.T) {
	w := walog.NewWriter()
	w.AppendAddSymbol(entity.Symbol{ID: 1, Name: "foo"})
	w.AppendAddSymbol(entity.Symbol{ID: 2, Name: "bar"})

	raw := w.Bytes()
	// Flip the last byte of the second record's CRC so its checksum no
	// longer matches the payload.
	raw[len(raw)-1] ^= 0xFF

	g := graph.New()
	res, err := walog.Replay(bytes.NewReader(raw), g)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, g.SymbolCount())
}

func TestReplayStopsAtTornTail(t *testing.T) {
	w := walog.NewWriter()
	w.AppendAddSymbol(entity.Symbol{ID: 1, Name: "foo"})
	w.AppendAddSymbol(entity.Symbol{ID: 2, Name: "bar"})

	raw := w.Bytes()
	torn := raw[:len(raw)-3] // cut mid-CRC of the second record

	g := graph.New()
	res, err := walog.Replay(bytes.NewReader(torn), g)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, g.SymbolCount())
}

func TestWriterResetClearsBuffer(t *testing.T) {
	w := walog.NewWriter()
	w.AppendCheckpoint()
	assert.Greater(t, w.Len(), 0)

	w.Reset()
	assert.Equal(t, 0, w.Len())
}
