// Package vecops implements the vec_* family of operations: dense vector
// construction, elementwise arithmetic, permutation, comparison and
// printing for the x/y operands of matvec_mult/matvec_kernel. Grounded on
// gonum's dense vector operations, whose ScaleVec/AddVec/AddScaledVec/
// CloneVec shapes this package's Scale/Add/AddScaled/Copy adapt to plain
// dense mat.VecDense (spx's x and y are always fully populated, not
// sparse, so no sparse-specific fast path applies here; the operation
// shapes and naming carry over regardless).
package vecops

import (
	"fmt"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/cslab-ntua/spx/internal/errtypes"
)

// Create returns a new zero-valued dense vector of length n, matching
// vec_create.
func Create(n int) *mat.VecDense {
	return mat.NewVecDense(n, nil)
}

// CreateFromBuff wraps an existing []float64 as a dense vector without
// copying, matching vec_create_from_buff. The caller retains ownership of
// buf; mutations to the returned vector alias buf.
func CreateFromBuff(buf []float64) *mat.VecDense {
	return mat.NewVecDense(len(buf), buf)
}

// CreateRandom returns a length-n vector of uniform [0,1) values drawn from
// rng, matching vec_create_random. rng is caller-supplied so callers get
// reproducible fixtures in tests.
func CreateRandom(n int, rng *rand.Rand) *mat.VecDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewVecDense(n, data)
}

// Set assigns v[i] = val, matching vec_set. Panics (via gonum) on an
// out-of-range i, consistent with mat.VecDense.SetVec's own contract.
func Set(v *mat.VecDense, i int, val float64) {
	v.SetVec(i, val)
}

// Init assigns every element of v to val, matching vec_init.
func Init(v *mat.VecDense, val float64) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, val)
	}
}

// Scale computes dst = alpha * src, matching vec_scale. dst and src may be
// the same vector.
func Scale(dst *mat.VecDense, alpha float64, src *mat.VecDense) {
	dst.ScaleVec(alpha, src)
}

// Add computes dst = a + b, matching vec_add.
func Add(dst, a, b *mat.VecDense) {
	dst.AddVec(a, b)
}

// Sub computes dst = a - b, matching vec_sub.
func Sub(dst, a, b *mat.VecDense) {
	dst.SubVec(a, b)
}

// Mul computes the elementwise (Hadamard) product dst = a .* b, matching
// vec_mul. mat.VecDense has no built-in Hadamard product (MulElemVec
// exists on mat.Dense only), so this loops directly.
func Mul(dst, a, b *mat.VecDense) {
	n := a.Len()
	if b.Len() != n {
		panic(mat.ErrShape)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a.AtVec(i) * b.AtVec(i)
	}
	*dst = *mat.NewVecDense(n, out)
}

// Copy clones src into dst, matching vec_copy, grounded directly on the
// teacher's CloneVec.
func Copy(dst, src *mat.VecDense) {
	dst.CloneVec(src)
}

// Reorder writes dst[i] = src[perm[i]] for every i, matching vec_reorder:
// gathering src according to a forward permutation (e.g. the one computed
// by internal/reorder).
func Reorder(dst, src *mat.VecDense, perm []int) error {
	if len(perm) != src.Len() || dst.Len() != src.Len() {
		return fmt.Errorf("%w: vecops: reorder length mismatch", errtypes.ErrArgInvalid)
	}
	out := make([]float64, src.Len())
	for i, p := range perm {
		out[i] = src.AtVec(p)
	}
	*dst = *mat.NewVecDense(len(out), out)
	return nil
}

// InvReorder is Reorder's inverse: dst[perm[i]] = src[i], matching
// vec_inv_reorder, used to scatter a result vector computed over permuted
// rows back into original row order.
func InvReorder(dst, src *mat.VecDense, perm []int) error {
	if len(perm) != src.Len() || dst.Len() != src.Len() {
		return fmt.Errorf("%w: vecops: inv_reorder length mismatch", errtypes.ErrArgInvalid)
	}
	out := make([]float64, src.Len())
	for i, p := range perm {
		out[p] = src.AtVec(i)
	}
	*dst = *mat.NewVecDense(len(out), out)
	return nil
}

// Compare reports whether a and b are elementwise equal within abs
// tolerance tol, matching vec_compare -- used by round-trip and
// SpMV-correctness tests.
func Compare(a, b *mat.VecDense, tol float64) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		d := a.AtVec(i) - b.AtVec(i)
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}

// Print renders v as a single-line bracketed list, matching vec_print.
func Print(v *mat.VecDense) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g", v.AtVec(i))
	}
	sb.WriteByte(']')
	return sb.String()
}
