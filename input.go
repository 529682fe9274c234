package spx

import (
	"fmt"
	"os"

	"github.com/cslab-ntua/spx/internal/mmf"
)

// Input is the opaque handle returned by input_load_csr/input_load_mmf,
// a plain CSR triple awaiting mat_tune.
type Input struct {
	NRows, NCols int
	RowPtr       []int
	ColInd       []int
	Values       []float64
	Symmetric    bool
}

// InputLoadCSR wraps a caller-supplied CSR triple as an Input, matching
// input_load_csr(rowptr, colind, values, nrows, ncols, [indexing]).
// indexing is 0 or 1 depending on whether colind entries are already
// 0-based or 1-based; pass 0 for ordinary Go-style 0-based input.
func InputLoadCSR(rowptr, colind []int, values []float64, nrows, ncols, indexing int) (*Input, error) {
	if nrows < 0 || ncols < 0 {
		return nil, fmt.Errorf("%w: input_load_csr: negative dimensions", ErrArgInvalid)
	}
	if len(rowptr) != nrows+1 {
		return nil, fmt.Errorf("%w: input_load_csr: rowptr has %d entries, want %d", ErrInputMatrix, len(rowptr), nrows+1)
	}
	if indexing != 0 && indexing != 1 {
		return nil, fmt.Errorf("%w: input_load_csr: indexing must be 0 or 1", ErrInputMatrix)
	}
	for i := 0; i < nrows; i++ {
		if rowptr[i+1] < rowptr[i] {
			return nil, fmt.Errorf("%w: input_load_csr: rowptr not monotonic at row %d", ErrInputMatrix, i)
		}
	}
	nnz := rowptr[nrows] - rowptr[0]
	if len(colind) < nnz || len(values) < nnz {
		return nil, fmt.Errorf("%w: input_load_csr: colind/values shorter than nnz=%d", ErrInputMatrix, nnz)
	}

	off := indexing // subtract indexing to normalize to 0-based for internal use
	norm := make([]int, len(colind))
	for i, c := range colind {
		norm[i] = c - off
	}

	return &Input{
		NRows:  nrows,
		NCols:  ncols,
		RowPtr: rowptr,
		ColInd: norm,
		Values: values,
	}, nil
}

// InputLoadMMF loads a Matrix Market coordinate file as an Input, matching
// input_load_mmf(filename).
func InputLoadMMF(filename string) (*Input, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: input_load_mmf: %v", ErrIoFailure, err)
	}
	defer f.Close()

	coo, err := mmf.LoadMMF(f)
	if err != nil {
		return nil, err
	}
	rowptr, colind, values := mmf.ToCSR(coo)
	return &Input{
		NRows:     coo.NRows,
		NCols:     coo.NCols,
		RowPtr:    rowptr,
		ColInd:    colind,
		Values:    values,
		Symmetric: coo.Symmetric,
	}, nil
}
