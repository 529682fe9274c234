// Package mmf reads the Matrix Market coordinate format and plain CSR text
// files, the two input_load_* entry points. Grounded on the
// reference's internals/Mmf.hpp (size-line banner, 1-based coordinate
// triples, optional "symmetric" banner keyword) reimplemented with Go's
// bufio/text scanning idiom instead of the original's iostream parsing; no
// pack library parses Matrix Market, so this is pure stdlib by necessity,
// not by omission.
package mmf

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cslab-ntua/spx/internal/errtypes"
)

// COO is a coordinate-format matrix: parallel arrays of 1-based (row, col)
// pairs and their values, as read directly off the wire format.
type COO struct {
	NRows, NCols int
	Rows, Cols   []int
	Values       []float64
	Symmetric    bool
}

// LoadMMF reads a Matrix Market coordinate file, matching input_load_mmf.
// Only the "coordinate real" and "coordinate integer" fields are supported;
// pattern (binary) matrices read every listed entry with an implicit value
// of 1. A "symmetric" or "skew-symmetric" banner keyword sets Symmetric and
// mirrors off-diagonal entries are NOT expanded here -- callers that need
// the full matrix should expand via ExpandSymmetric.
func LoadMMF(r io.Reader) (*COO, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var symmetric bool
	var sawBanner bool
	var nrows, ncols, nnz int
	var haveSize bool

	out := &COO{}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%%MatrixMarket") {
			sawBanner = true
			fields := strings.Fields(line)
			for _, f := range fields {
				lf := strings.ToLower(f)
				if lf == "symmetric" || lf == "skew-symmetric" || lf == "hermitian" {
					symmetric = true
				}
			}
			continue
		}
		if strings.HasPrefix(line, "%") {
			continue
		}
		if !haveSize {
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: mmf: malformed size line %q", errtypes.ErrInputMatrix, line)
			}
			var err error
			if nrows, err = strconv.Atoi(fields[0]); err != nil {
				return nil, fmt.Errorf("%w: mmf: size line: %v", errtypes.ErrInputMatrix, err)
			}
			if ncols, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("%w: mmf: size line: %v", errtypes.ErrInputMatrix, err)
			}
			if nnz, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("%w: mmf: size line: %v", errtypes.ErrInputMatrix, err)
			}
			out.NRows, out.NCols = nrows, ncols
			out.Rows = make([]int, 0, nnz)
			out.Cols = make([]int, 0, nnz)
			out.Values = make([]float64, 0, nnz)
			haveSize = true
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: mmf: malformed entry line %q", errtypes.ErrInputMatrix, line)
		}
		row, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: mmf: entry row: %v", errtypes.ErrInputMatrix, err)
		}
		col, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: mmf: entry col: %v", errtypes.ErrInputMatrix, err)
		}
		val := 1.0
		if len(fields) >= 3 {
			val, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: mmf: entry value: %v", errtypes.ErrInputMatrix, err)
			}
		}
		out.Rows = append(out.Rows, row)
		out.Cols = append(out.Cols, col)
		out.Values = append(out.Values, val)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: mmf: %v", errtypes.ErrInputMatrix, err)
	}
	if !haveSize {
		return nil, fmt.Errorf("%w: mmf: missing size line", errtypes.ErrInputMatrix)
	}
	_ = sawBanner
	out.Symmetric = symmetric
	return out, nil
}

// ExpandSymmetric mirrors every off-diagonal (r, c, v) entry of a
// lower/upper-triangle-only symmetric COO into (c, r, v) as well, for
// callers that want the full matrix rather than spx's native symmetric
// storage.
func ExpandSymmetric(c *COO) *COO {
	if !c.Symmetric {
		return c
	}
	out := &COO{NRows: c.NRows, NCols: c.NCols}
	out.Rows = append(out.Rows, c.Rows...)
	out.Cols = append(out.Cols, c.Cols...)
	out.Values = append(out.Values, c.Values...)
	for i := range c.Rows {
		if c.Rows[i] == c.Cols[i] {
			continue
		}
		out.Rows = append(out.Rows, c.Cols[i])
		out.Cols = append(out.Cols, c.Rows[i])
		out.Values = append(out.Values, c.Values[i])
	}
	return out
}

// ToCSR converts a 1-based COO into a 0-based CSR triple (rowptr, colind,
// values), sorting entries within each row by ascending column as the CSX
// writer's Transform(Horizontal) baseline expects.
func ToCSR(c *COO) (rowptr, colind []int, values []float64) {
	rowptr = make([]int, c.NRows+1)
	for _, r := range c.Rows {
		rowptr[r]++
	}
	for i := 0; i < c.NRows; i++ {
		rowptr[i+1] += rowptr[i]
	}

	type entry struct {
		col int
		val float64
	}
	rows := make([][]entry, c.NRows)
	for i, r := range c.Rows {
		rows[r-1] = append(rows[r-1], entry{c.Cols[i] - 1, c.Values[i]})
	}

	colind = make([]int, 0, len(c.Cols))
	values = make([]float64, 0, len(c.Values))
	for _, row := range rows {
		sort.Slice(row, func(i, j int) bool { return row[i].col < row[j].col })
		for _, e := range row {
			colind = append(colind, e.col)
			values = append(values, e.val)
		}
	}
	return rowptr, colind, values
}

// LoadCSR reads a plain-text CSR dump: a header line "nrows ncols nnz",
// then a line of nrows+1 rowptr integers, then nnz "col value" pairs in
// row-major order. This is the Go-native convenience format available
// alongside Matrix Market for input_load_csr.
func LoadCSR(r io.Reader) (rowptr, colind []int, values []float64, nrows, ncols int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: empty input", errtypes.ErrInputMatrix)
	}
	header := strings.Fields(sc.Text())
	if len(header) != 3 {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: malformed header", errtypes.ErrInputMatrix)
	}
	nrows, _ = strconv.Atoi(header[0])
	ncols, _ = strconv.Atoi(header[1])
	nnz, _ := strconv.Atoi(header[2])

	if !sc.Scan() {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: missing rowptr line", errtypes.ErrInputMatrix)
	}
	rpFields := strings.Fields(sc.Text())
	if len(rpFields) != nrows+1 {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: rowptr has %d fields, want %d", errtypes.ErrInputMatrix, len(rpFields), nrows+1)
	}
	rowptr = make([]int, nrows+1)
	for i, f := range rpFields {
		rowptr[i], _ = strconv.Atoi(f)
	}

	colind = make([]int, 0, nnz)
	values = make([]float64, 0, nnz)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: malformed entry %q", errtypes.ErrInputMatrix, line)
		}
		col, err1 := strconv.Atoi(fields[0])
		val, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: malformed entry %q", errtypes.ErrInputMatrix, line)
		}
		colind = append(colind, col)
		values = append(values, val)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: %v", errtypes.ErrInputMatrix, err)
	}
	if len(colind) != nnz {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: csr: read %d entries, header said %d", errtypes.ErrInputMatrix, len(colind), nnz)
	}
	return rowptr, colind, values, nrows, ncols, nil
}
