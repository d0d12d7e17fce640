// Package walog implements the append-only write-ahead log that sits
// between ingestion and the in-memory graph: every mutation is appended here
// before it is applied, so a crash mid-ingest can be replayed deterministically
// on restart.
//
// Record layout: `[op: u8][payload][crc32: u32]`. The CRC covers the payload
// only, not the op byte. Payload encodings mirror the per-entity layouts in
// internal/codec.
package walog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"

	"github.com/rohankatakam/codegraph/internal/entity"
	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
)

// Op identifies the kind of mutation a WAL record carries.
type Op uint8

const (
	OpAddSymbol     Op = 0x01
	OpAddFile       Op = 0x02
	OpAddCommit     Op = 0x03
	OpAddEdge       Op = 0x04
	OpFileInvalidate Op = 0x05
	OpCheckpoint    Op = 0xFF
)

// Writer accumulates WAL records in an in-memory buffer. Reset clears the
// buffer without releasing its backing array, mirroring the teacher's
// preference for reusable buffers over per-call allocation.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated log contents. The returned slice is a view;
// copy it before calling Reset if the caller needs to retain it.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes accumulated so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer without deallocating its backing array.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// WriteTo flushes the accumulated bytes to dst and then resets the buffer.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf.Bytes())
	if err == nil {
		w.Reset()
	}
	return int64(n), err
}

func (w *Writer) appendRecord(op Op, payload []byte) {
	w.buf.WriteByte(byte(op))
	w.buf.Write(payload)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(payload))
	w.buf.Write(crcBuf[:])
}

// AppendAddSymbol appends an add_symbol record.
func (w *Writer) AppendAddSymbol(s entity.Symbol) {
	var payload bytes.Buffer
	encodeSymbol(&payload, s)
	w.appendRecord(OpAddSymbol, payload.Bytes())
}

// AppendAddFile appends an add_file record.
func (w *Writer) AppendAddFile(f entity.File) {
	var payload bytes.Buffer
	encodeFile(&payload, f)
	w.appendRecord(OpAddFile, payload.Bytes())
}

// AppendAddCommit appends an add_commit record.
func (w *Writer) AppendAddCommit(c entity.Commit) {
	var payload bytes.Buffer
	encodeCommit(&payload, c)
	w.appendRecord(OpAddCommit, payload.Bytes())
}

// AppendAddEdge appends an add_edge record.
func (w *Writer) AppendAddEdge(e entity.Edge) {
	var payload bytes.Buffer
	encodeEdge(&payload, e)
	w.appendRecord(OpAddEdge, payload.Bytes())
}

// AppendFileInvalidate appends a file_invalidate record for fileID.
func (w *Writer) AppendFileInvalidate(fileID uint32) {
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], fileID)
	w.appendRecord(OpFileInvalidate, payload[:])
}

// AppendCheckpoint appends an empty-payload checkpoint record, marking the
// prefix of the log that can be safely discarded once the caller has
// persisted a matching full-graph snapshot.
func (w *Writer) AppendCheckpoint() {
	w.appendRecord(OpCheckpoint, nil)
}

// Sink receives replayed mutations. internal/graph.Graph satisfies this.
type Sink interface {
	AddSymbol(entity.Symbol)
	AddFile(entity.File)
	AddCommit(entity.Commit)
	AddEdge(entity.Edge)
}

// Result is the structured outcome of a Replay call.
type Result struct {
	Applied          int
	Checkpoints      int
	InvalidatedFiles map[uint32]struct{}
}

// Replay applies every well-formed record in r, in order, to sink. On
// encountering an unknown op, a payload truncated mid-record, or a CRC
// mismatch, replay stops cleanly at that boundary: this is the crash-recovery
// contract for a torn tail written by a process that died mid-append.
// Replay never returns an error for a torn tail; it returns the partial
// Result reflecting everything applied before the tear.
func Replay(r io.Reader, sink Sink) (Result, error) {
	res := Result{InvalidatedFiles: make(map[uint32]struct{})}
	br := bufio.NewReader(r)

	for {
		opByte, err := br.ReadByte()
		if err != nil {
			return res, nil // clean EOF between records
		}
		op := Op(opByte)

		payload, ok, err := readPayloadForOp(br, op)
		if err != nil {
			return res, err
		}
		if !ok {
			// truncated mid-record or unknown op: silently stop
			return res, nil
		}

		crcBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, crcBuf); err != nil {
			return res, nil
		}
		want := binary.LittleEndian.Uint32(crcBuf)
		got := crc32.ChecksumIEEE(payload)
		if want != got {
			return res, nil
		}

		switch op {
		case OpAddSymbol:
			s, err := decodeSymbol(bytes.NewReader(payload))
			if err != nil {
				return res, nil
			}
			sink.AddSymbol(s)
		case OpAddFile:
			f, err := decodeFile(bytes.NewReader(payload))
			if err != nil {
				return res, nil
			}
			sink.AddFile(f)
		case OpAddCommit:
			c, err := decodeCommit(bytes.NewReader(payload))
			if err != nil {
				return res, nil
			}
			sink.AddCommit(c)
		case OpAddEdge:
			e, err := decodeEdge(bytes.NewReader(payload))
			if err != nil {
				return res, nil
			}
			sink.AddEdge(e)
		case OpFileInvalidate:
			fileID := binary.LittleEndian.Uint32(payload)
			res.InvalidatedFiles[fileID] = struct{}{}
		case OpCheckpoint:
			res.Checkpoints++
		}
		res.Applied++
	}
}

// readPayloadForOp reads exactly the bytes belonging to op's payload. ok is
// false (with a nil error) for an unknown op or a payload truncated before
// its declared/implicit length; both are silent-truncation cases for Replay.
func readPayloadForOp(br *bufio.Reader, op Op) (payload []byte, ok bool, err error) {
	switch op {
	case OpFileInvalidate:
		buf := make([]byte, 4)
		if _, e := io.ReadFull(br, buf); e != nil {
			return nil, false, nil
		}
		return buf, true, nil
	case OpCheckpoint:
		return nil, true, nil
	case OpAddSymbol, OpAddFile, OpAddCommit, OpAddEdge:
		return readVariableRecord(br, op)
	default:
		return nil, false, nil
	}
}

// readVariableRecord reads a full variable-length entity/edge payload by
// decoding it once (to learn its true wire length) and returning the exact
// bytes consumed, so the caller can CRC-check them without re-deriving the
// length itself.
func readVariableRecord(br *bufio.Reader, op Op) ([]byte, bool, error) {
	var peekBuf bytes.Buffer
	tee := io.TeeReader(br, &peekBuf)

	var decodeErr error
	switch op {
	case OpAddSymbol:
		_, decodeErr = decodeSymbol(tee)
	case OpAddFile:
		_, decodeErr = decodeFile(tee)
	case OpAddCommit:
		_, decodeErr = decodeCommit(tee)
	case OpAddEdge:
		_, decodeErr = decodeEdge(tee)
	}
	if decodeErr != nil {
		return nil, false, nil
	}
	return peekBuf.Bytes(), true, nil
}

func encodeSymbol(w io.Writer, s entity.Symbol) {
	writeU64(w, s.ID)
	writeString(w, s.Name)
	w.Write([]byte{byte(s.Kind)})
	writeU32(w, s.File)
	writeU32(w, s.Line)
	writeU16(w, s.Col)
	writeString(w, s.Scope)
}

func decodeSymbol(r io.Reader) (entity.Symbol, error) {
	var s entity.Symbol
	var err error
	if s.ID, err = readU64(r); err != nil {
		return s, err
	}
	if s.Name, err = readString(r); err != nil {
		return s, err
	}
	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return s, err
	}
	s.Kind = entity.SymbolKind(kind[0])
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

func encodeFile(w io.Writer, f entity.File) {
	writeU32(w, f.ID)
	writeString(w, f.Path)
	w.Write([]byte{byte(f.Language)})
	writeI64(w, f.LastModified)
	w.Write(f.Hash[:])
}

func decodeFile(r io.Reader) (entity.File, error) {
	var f entity.File
	var err error
	if f.ID, err = readU32(r); err != nil {
		return f, err
	}
	if f.Path, err = readString(r); err != nil {
		return f, err
	}
	var lang [1]byte
	if _, err := io.ReadFull(r, lang[:]); err != nil {
		return f, err
	}
	f.Language = entity.Language(lang[0])
	if f.LastModified, err = readI64(r); err != nil {
		return f, err
	}
	if _, err := io.ReadFull(r, f.Hash[:]); err != nil {
		return f, err
	}
	return f, nil
}

func encodeCommit(w io.Writer, c entity.Commit) {
	writeU32(w, c.ID)
	w.Write(c.Hash[:])
	writeI64(w, c.Timestamp)
	writeString(w, c.Author)
	writeString(w, c.Message)
}

func decodeCommit(r io.Reader) (entity.Commit, error) {
	var c entity.Commit
	var err error
	if c.ID, err = readU32(r); err != nil {
		return c, err
	}
	if _, err := io.ReadFull(r, c.Hash[:]); err != nil {
		return c, err
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

func encodeEdge(w io.Writer, e entity.Edge) {
	writeU64(w, e.Src)
	writeU64(w, e.Dst)
	w.Write([]byte{byte(e.Kind)})
	var bits [4]byte
	binary.LittleEndian.PutUint32(bits[:], math.Float32bits(e.Weight))
	w.Write(bits[:])
}

func decodeEdge(r io.Reader) (entity.Edge, error) {
	var e entity.Edge
	var err error
	if e.Src, err = readU64(r); err != nil {
		return e, err
	}
	if e.Dst, err = readU64(r); err != nil {
		return e, err
	}
	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return e, err
	}
	e.Kind = entity.EdgeKind(kind[0])
	bits, err := readU32(r)
	if err != nil {
		return e, err
	}
	e.Weight = math.Float32frombits(bits)
	return e, nil
}

func writeString(w io.Writer, s string) {
	writeU32(w, uint32(len(s)))
	io.WriteString(w, s)
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if n > maxWalString {
		return "", cgerrors.ErrStringTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

const maxWalString = 10 * 1024 * 1024

func writeU16(w io.Writer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeU32(w io.Writer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeU64(w io.Writer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeI64(w io.Writer, v int64) {
	writeU64(w, uint64(v))
}

func readI64(r io.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}
