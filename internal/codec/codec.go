// Package codec implements the little-endian, stream-oriented binary format
// used to persist a full graph snapshot to disk.
//
// File layout:
//
//	magic          [4]byte  "CGDB"
//	format_version uint32   (currently 1; anything else -> ErrUnsupportedVersion)
//	num_symbols    uint32
//	num_files      uint32
//	num_commits    uint32
//	num_edges      uint32
//	[ symbol block × num_symbols ]
//	[ file   block × num_files   ]
//	[ commit block × num_commits ]
//	[ edge   block × num_edges   ]
//
// Reference: the string-length-cap and magic/version rejection pattern
// follows the teacher's internal/storage drivers' defensive-read style,
// adapted to the fixed-header-plus-blocks shape documented by the EntityDB
// binary format in the example pack.
package codec

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/rohankatakam/codegraph/internal/entity"
	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
)

// Magic identifies a codegraph snapshot file.
var Magic = [4]byte{'C', 'G', 'D', 'B'}

// FormatVersion is the only version this codec writes or accepts on read.
const FormatVersion uint32 = 1

// MaxStringLen is the sanity cap placed on any length-prefixed string/byte
// field; a length exceeding this is treated as a corrupt stream rather than
// an attempt to allocate gigabytes on the decoder's behalf.
const MaxStringLen = 10 * 1024 * 1024

// GraphSource is the minimal read surface the encoder needs from a graph.
type GraphSource interface {
	Symbols() []entity.Symbol
	Files() []entity.File
	Commits() []entity.Commit
	Edges() []entity.Edge
}

// GraphSink is the minimal write surface the decoder needs on a graph.
type GraphSink interface {
	AddSymbol(entity.Symbol)
	AddFile(entity.File)
	AddCommit(entity.Commit)
	AddEdge(entity.Edge)
}

// Encode writes a full snapshot of g to w.
func Encode(w io.Writer, g GraphSource) error {
	bw := bufio.NewWriter(w)

	symbols := g.Symbols()
	files := g.Files()
	commits := g.Commits()
	edges := g.Edges()

	if _, err := bw.Write(Magic[:]); err != nil {
		return err
	}
	if err := writeU32(bw, FormatVersion); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(symbols))); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(files))); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(commits))); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(edges))); err != nil {
		return err
	}

	for _, s := range symbols {
		if err := writeSymbol(bw, s); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := writeFile(bw, f); err != nil {
			return err
		}
	}
	for _, c := range commits {
		if err := writeCommit(bw, c); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := writeEdge(bw, e); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Decode reads a full snapshot from r and applies every entity/edge to sink
// in file order. On success sink has received as many entities and edges
// of each kind as the file's header declares.
func Decode(r io.Reader, sink GraphSink) error {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return cgerrors.ErrTruncated
		}
		return err
	}
	if magic != Magic {
		return cgerrors.ErrInvalidFormat
	}

	version, err := readU32(br)
	if err != nil {
		return err
	}
	if version != FormatVersion {
		return cgerrors.ErrUnsupportedVersion
	}

	numSymbols, err := readU32(br)
	if err != nil {
		return err
	}
	numFiles, err := readU32(br)
	if err != nil {
		return err
	}
	numCommits, err := readU32(br)
	if err != nil {
		return err
	}
	numEdges, err := readU32(br)
	if err != nil {
		return err
	}

	for i := uint32(0); i < numSymbols; i++ {
		s, err := readSymbol(br)
		if err != nil {
			return err
		}
		sink.AddSymbol(s)
	}
	for i := uint32(0); i < numFiles; i++ {
		f, err := readFile(br)
		if err != nil {
			return err
		}
		sink.AddFile(f)
	}
	for i := uint32(0); i < numCommits; i++ {
		c, err := readCommit(br)
		if err != nil {
			return err
		}
		sink.AddCommit(c)
	}
	for i := uint32(0); i < numEdges; i++ {
		e, err := readEdge(br)
		if err != nil {
			return err
		}
		sink.AddEdge(e)
	}

	return nil
}

func writeSymbol(w io.Writer, s entity.Symbol) error {
	if err := writeU64(w, s.ID); err != nil {
		return err
	}
	if err := writeString(w, s.Name); err != nil {
		return err
	}
	if err := writeU8(w, uint8(s.Kind)); err != nil {
		return err
	}
	if err := writeU32(w, s.File); err != nil {
		return err
	}
	if err := writeU32(w, s.Line); err != nil {
		return err
	}
	if err := writeU16(w, s.Col); err != nil {
		return err
	}
	return writeString(w, s.Scope)
}

func readSymbol(r io.Reader) (entity.Symbol, error) {
	var s entity.Symbol
	var err error
	if s.ID, err = readU64(r); err != nil {
		return s, err
	}
	if s.Name, err = readString(r); err != nil {
		return s, err
	}
	kind, err := readU8(r)
	if err != nil {
		return s, err
	}
	s.Kind = entity.SymbolKind(kind)
	if s.File, err = readU32(r); err != nil {
		return s, err
	}
	if s.Line, err = readU32(r); err != nil {
		return s, err
	}
	if s.Col, err = readU16(r); err != nil {
		return s, err
	}
	if s.Scope, err = readString(r); err != nil {
		return s, err
	}
	return s, nil
}

func writeFile(w io.Writer, f entity.File) error {
	if err := writeU32(w, f.ID); err != nil {
		return err
	}
	if err := writeString(w, f.Path); err != nil {
		return err
	}
	if err := writeU8(w, uint8(f.Language)); err != nil {
		return err
	}
	if err := writeI64(w, f.LastModified); err != nil {
		return err
	}
	_, err := w.Write(f.Hash[:])
	return err
}

func readFile(r io.Reader) (entity.File, error) {
	var f entity.File
	var err error
	if f.ID, err = readU32(r); err != nil {
		return f, err
	}
	if f.Path, err = readString(r); err != nil {
		return f, err
	}
	lang, err := readU8(r)
	if err != nil {
		return f, err
	}
	f.Language = entity.Language(lang)
	if f.LastModified, err = readI64(r); err != nil {
		return f, err
	}
	if _, err := io.ReadFull(r, f.Hash[:]); err != nil {
		return f, truncErr(err)
	}
	return f, nil
}

func writeCommit(w io.Writer, c entity.Commit) error {
	if err := writeU32(w, c.ID); err != nil {
		return err
	}
	if _, err := w.Write(c.Hash[:]); err != nil {
		return err
	}
	if err := writeI64(w, c.Timestamp); err != nil {
		return err
	}
	if err := writeString(w, c.Author); err != nil {
		return err
	}
	return writeString(w, c.Message)
}

func readCommit(r io.Reader) (entity.Commit, error) {
	var c entity.Commit
	var err error
	if c.ID, err = readU32(r); err != nil {
		return c, err
	}
	if _, err := io.ReadFull(r, c.Hash[:]); err != nil {
		return c, truncErr(err)
	}
	if c.Timestamp, err = readI64(r); err != nil {
		return c, err
	}
	if c.Author, err = readString(r); err != nil {
		return c, err
	}
	if c.Message, err = readString(r); err != nil {
		return c, err
	}
	return c, nil
}

func writeEdge(w io.Writer, e entity.Edge) error {
	if err := writeU64(w, e.Src); err != nil {
		return err
	}
	if err := writeU64(w, e.Dst); err != nil {
		return err
	}
	if err := writeU8(w, uint8(e.Kind)); err != nil {
		return err
	}
	return writeU32(w, math.Float32bits(e.Weight))
}

func readEdge(r io.Reader) (entity.Edge, error) {
	var e entity.Edge
	var err error
	if e.Src, err = readU64(r); err != nil {
		return e, err
	}
	if e.Dst, err = readU64(r); err != nil {
		return e, err
	}
	kind, err := readU8(r)
	if err != nil {
		return e, err
	}
	e.Kind = entity.EdgeKind(kind)
	bits, err := readU32(r)
	if err != nil {
		return e, err
	}
	e.Weight = math.Float32frombits(bits)
	return e, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		return "", cgerrors.ErrStringTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", truncErr(err)
	}
	return string(buf), nil
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncErr(err)
	}
	return b[0], nil
}

func writeU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncErr(err)
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncErr(err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncErr(err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeI64(w io.Writer, v int64) error {
	return writeU64(w, uint64(v))
}

func readI64(r io.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}

func truncErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return cgerrors.ErrTruncated
	}
	return err
}
