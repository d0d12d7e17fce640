package codec_test

import (
	"bytes"
	"testing"

	"github.com/rohankatakam/codegraph/internal/codec"
	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/entity"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleGraph() *graph.Graph {
	g := graph.New()
	g.AddSymbol(entity.Symbol{ID: 1, Name: "handleRequest", Kind: entity.KindFunction, File: 1, Line: 10, Col: 1, Scope: "pkg"})
	g.AddFile(entity.File{ID: 1, Path: "src/server.ts", Language: entity.LangTypeScript, LastModified: 1700000000000})
	g.AddCommit(entity.Commit{ID: 1, Timestamp: 1700000000, Author: "jane", Message: "initial commit"})
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 0.75})
	return g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := buildSampleGraph()

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, src))

	dst := graph.New()
	require.NoError(t, codec.Decode(&buf, dst))

	assert.Equal(t, src.SymbolCount(), dst.SymbolCount())
	assert.Equal(t, src.FileCount(), dst.FileCount())
	assert.Equal(t, src.CommitCount(), dst.CommitCount())
	assert.Equal(t, src.EdgeCount(), dst.EdgeCount())

	s, ok := dst.Symbol(1)
	require.True(t, ok)
	assert.Equal(t, "handleRequest", s.Name)

	edges := dst.OutAdjacency(1)
	require.Len(t, edges, 1)
	assert.InDelta(t, 0.75, edges[0].Weight, 1e-6)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXX")
	err := codec.Decode(buf, graph.New())
	assert.ErrorIs(t, err, cgerrors.ErrInvalidFormat)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(codec.Magic[:])
	buf.Write([]byte{99, 0, 0, 0}) // version 99, little endian
	err := codec.Decode(&buf, graph.New())
	assert.ErrorIs(t, err, cgerrors.ErrUnsupportedVersion)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	src := buildSampleGraph()
	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, src))

	truncated := buf.Bytes()[:buf.Len()-5]
	err := codec.Decode(bytes.NewReader(truncated), graph.New())
	assert.ErrorIs(t, err, cgerrors.ErrTruncated)
}

func TestDecodeRejectsOversizedString(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(codec.Magic[:])
	_ = writeU32(&buf, codec.FormatVersion)
	_ = writeU32(&buf, 1) // num_symbols
	_ = writeU32(&buf, 0)
	_ = writeU32(&buf, 0)
	_ = writeU32(&buf, 0)
	// symbol: id(8) + name_len(u32, oversized)
	_ = writeU64(&buf, 1)
	_ = writeU32(&buf, codec.MaxStringLen+1)

	err := codec.Decode(&buf, graph.New())
	assert.ErrorIs(t, err, cgerrors.ErrStringTooLarge)
}

func writeU32(buf *bytes.Buffer, v uint32) error {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	_, err := buf.Write(b)
	return err
}

func writeU64(buf *bytes.Buffer, v uint64) error {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	_, err := buf.Write(b)
	return err
}
