// Package persist implements mat_save/mat_restore: the persistent CSX file
// format, written field-by-field in little-endian the way the
// reference's boost::serialization-based format describes, hand-rolling
// MarshalBinaryTo/UnmarshalBinaryFrom pairs over io.Writer/io.Reader with a
// readUntilFull helper rather than using encoding/gob or a reflection-based
// codec, since the on-disk layout is a fixed wire contract rather than a Go
// value graph.
package persist

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cslab-ntua/spx/internal/csx"
	"github.com/cslab-ntua/spx/internal/encoding"
	"github.com/cslab-ntua/spx/internal/errtypes"
)

// ThreadInfo is one worker's placement and per-partition size summary
// cpu/id/node identify the thread, nnz/ctl_size let a
// restore recompute NUMA interleave plans without re-scanning every
// partition's ctl stream.
type ThreadInfo struct {
	CPU, ID uint32
	Node    int32
	NNZ     int64
	CtlSize int64
}

// File is the full persisted state of a CSX matrix: one Matrix per thread
// plus the header and optional symmetric/permutation tails.
type File struct {
	Symmetric bool
	Threads   []ThreadInfo
	Matrices  []*csx.Matrix

	Dvalues      []float64
	ReductionMap [][]csx.ReductionEntry // one slice per thread, same order as Matrices

	Reordered   bool
	Permutation []int
}

const idMapSlots = 64

// Save writes f to w in a fixed field order.
func Save(w io.Writer, f *File) error {
	bw := &byteWriter{w: w}
	bw.writeUint64(uint64(len(f.Threads)))
	bw.writeBool(f.Symmetric)

	for _, t := range f.Threads {
		bw.writeUint32(t.CPU)
		bw.writeUint32(t.ID)
		bw.writeInt32(t.Node)
		bw.writeInt64(t.NNZ)
		bw.writeInt64(t.CtlSize)
	}
	if bw.err != nil {
		return wrapIO(bw.err)
	}

	for _, m := range f.Matrices {
		if err := saveMatrix(bw, m); err != nil {
			return err
		}
	}

	if f.Symmetric {
		bw.writeUint64(uint64(len(f.Dvalues)))
		for _, d := range f.Dvalues {
			bw.writeFloat64(d)
		}
		bw.writeUint64(uint64(len(f.ReductionMap)))
		for _, tm := range f.ReductionMap {
			bw.writeUint64(uint64(len(tm)))
			for _, e := range tm {
				bw.writeInt64(int64(e.DestThread))
				bw.writeInt64(int64(e.Col))
				bw.writeInt64(int64(e.LocalIndex))
			}
		}
	}

	bw.writeBool(f.Reordered)
	if f.Reordered {
		bw.writeUint64(uint64(len(f.Permutation)))
		for _, p := range f.Permutation {
			bw.writeInt64(int64(p))
		}
	}
	if bw.err != nil {
		return wrapIO(bw.err)
	}
	return nil
}

func saveMatrix(bw *byteWriter, m *csx.Matrix) error {
	bw.writeInt64(int64(m.NNZ))
	bw.writeInt64(int64(m.NCols))
	bw.writeInt64(int64(m.NRows))
	bw.writeInt64(int64(m.CtlSize))
	bw.writeInt64(int64(m.RowStart))

	for _, v := range m.Values {
		bw.writeFloat64(v)
	}
	bw.writeBytes(m.Ctl)

	slots := idMapSlots
	for i := 0; i < slots; i++ {
		if i < len(m.IDMap) {
			bw.writeInt64(int64(m.IDMap[i].Type))
			bw.writeInt64(int64(m.IDMap[i].Delta))
		} else {
			bw.writeInt64(-1)
			bw.writeInt64(-1)
		}
	}

	bw.writeBool(m.RowJumps)
	bw.writeBool(m.FullColind)
	bw.writeUint64(uint64(len(m.RowsInfo)))
	for _, ri := range m.RowsInfo {
		bw.writeInt64(int64(ri.CtlStart))
		bw.writeInt64(int64(ri.ValStart))
		bw.writeInt64(int64(ri.Span))
		bw.writeInt64(int64(ri.AnchorRow))
	}
	return wrapIO(bw.err)
}

// Restore reads a File back from r, the inverse of Save.
func Restore(r io.Reader) (*File, error) {
	br := &byteReader{r: r}
	nrThreads := int(br.readUint64())
	f := &File{Symmetric: br.readBool()}
	if br.err != nil {
		return nil, wrapIO(br.err)
	}

	f.Threads = make([]ThreadInfo, nrThreads)
	for i := range f.Threads {
		f.Threads[i] = ThreadInfo{
			CPU:     br.readUint32(),
			ID:      br.readUint32(),
			Node:    br.readInt32(),
			NNZ:     br.readInt64(),
			CtlSize: br.readInt64(),
		}
	}
	if br.err != nil {
		return nil, wrapIO(br.err)
	}

	f.Matrices = make([]*csx.Matrix, nrThreads)
	for i := range f.Matrices {
		m, err := restoreMatrix(br)
		if err != nil {
			return nil, err
		}
		f.Matrices[i] = m
	}

	if f.Symmetric {
		n := int(br.readUint64())
		f.Dvalues = make([]float64, n)
		for i := range f.Dvalues {
			f.Dvalues[i] = br.readFloat64()
		}
		nThreads := int(br.readUint64())
		f.ReductionMap = make([][]csx.ReductionEntry, nThreads)
		for t := range f.ReductionMap {
			n := int(br.readUint64())
			tm := make([]csx.ReductionEntry, n)
			for i := range tm {
				tm[i] = csx.ReductionEntry{
					DestThread: int(br.readInt64()),
					Col:        int(br.readInt64()),
					LocalIndex: int(br.readInt64()),
				}
			}
			f.ReductionMap[t] = tm
		}
	}

	f.Reordered = br.readBool()
	if f.Reordered {
		n := int(br.readUint64())
		f.Permutation = make([]int, n)
		for i := range f.Permutation {
			f.Permutation[i] = int(br.readInt64())
		}
	}
	if br.err != nil {
		return nil, wrapIO(br.err)
	}
	return f, nil
}

func restoreMatrix(br *byteReader) (*csx.Matrix, error) {
	m := &csx.Matrix{}
	m.NNZ = int(br.readInt64())
	m.NCols = int(br.readInt64())
	m.NRows = int(br.readInt64())
	m.CtlSize = int(br.readInt64())
	m.RowStart = int(br.readInt64())

	m.Values = make([]float64, m.NNZ)
	for i := range m.Values {
		m.Values[i] = br.readFloat64()
	}
	m.Ctl = br.readBytes(m.CtlSize)

	m.IDMap = make([]encoding.Instantiation, 0, idMapSlots)
	for i := 0; i < idMapSlots; i++ {
		t := br.readInt64()
		d := br.readInt64()
		if t == -1 && d == -1 {
			continue
		}
		m.IDMap = append(m.IDMap, encoding.Instantiation{Type: encoding.Type(t), Delta: int(d)})
	}

	m.RowJumps = br.readBool()
	m.FullColind = br.readBool()
	nrows := int(br.readUint64())
	m.RowsInfo = make([]csx.RowInfo, nrows)
	for i := range m.RowsInfo {
		m.RowsInfo[i] = csx.RowInfo{
			CtlStart:  int(br.readInt64()),
			ValStart:  int(br.readInt64()),
			Span:      int(br.readInt64()),
			AnchorRow: int(br.readInt64()),
		}
	}
	if br.err != nil {
		return nil, wrapIO(br.err)
	}
	return m, nil
}

func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: persist: %v", errtypes.ErrIoFailure, err)
}

type byteWriter struct {
	w   io.Writer
	err error
}

func (b *byteWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *byteWriter) writeUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.write(buf[:])
}

func (b *byteWriter) writeInt64(v int64)     { b.writeUint64(uint64(v)) }
func (b *byteWriter) writeUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.write(buf[:])
}
func (b *byteWriter) writeInt32(v int32)     { b.writeUint32(uint32(v)) }
func (b *byteWriter) writeFloat64(v float64) { b.writeUint64(math.Float64bits(v)) }
func (b *byteWriter) writeBool(v bool) {
	if v {
		b.write([]byte{1})
	} else {
		b.write([]byte{0})
	}
}
func (b *byteWriter) writeBytes(p []byte) { b.write(p) }

type byteReader struct {
	r   io.Reader
	err error
}

func (b *byteReader) readN(n int) []byte {
	if b.err != nil {
		return make([]byte, n)
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(b.r, buf)
	if err != nil {
		b.err = err
	}
	return buf
}

func (b *byteReader) readUint64() uint64  { return binary.LittleEndian.Uint64(b.readN(8)) }
func (b *byteReader) readInt64() int64    { return int64(b.readUint64()) }
func (b *byteReader) readUint32() uint32  { return binary.LittleEndian.Uint32(b.readN(4)) }
func (b *byteReader) readInt32() int32    { return int32(b.readUint32()) }
func (b *byteReader) readFloat64() float64 { return math.Float64frombits(b.readUint64()) }
func (b *byteReader) readBool() bool      { return b.readN(1)[0] != 0 }
func (b *byteReader) readBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	return b.readN(n)
}
