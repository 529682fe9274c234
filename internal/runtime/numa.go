package runtime

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Affinity pins the calling OS thread to the given CPU id: one OS thread
// per configured logical CPU, matching the recovered CPU-pinning behaviour
// of the original's Affinity.cpp. The caller must have already called
// runtime.LockOSThread, since affinity is a per-OS-thread, not per-goroutine,
// property.
func Affinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("runtime: sched_setaffinity cpu=%d: %w", cpu, err)
	}
	return nil
}

// NodeOfCPU returns the NUMA node a CPU belongs to. It reads no topology
// and always returns 0, so every CPU maps to node 0.
func NodeOfCPU(cpu int) int {
	return 0
}

const (
	mpolBind        = 2
	mbindStrict     = 1 << 0
	numaMaxNodeBits = 64
)

// BindNode allocates a buffer of n bytes and binds it to node via
// mbind(MPOL_BIND), matching the NUMA policy for per-thread
// structures (ctl, values, local buffers, rows_info, id_map, diagonal
// slice). On platforms or kernels where mbind is unavailable this degrades
// to an ordinary allocation (first-touch by the calling, already-pinned,
// thread still lands it on the right node in practice).
func BindNode(n int, node int) []byte {
	buf := make([]byte, n)
	if n == 0 {
		return buf
	}
	var mask uint64 = 1 << uint(node)
	_, _, errno := unix.Syscall6(
		unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(n),
		uintptr(mpolBind),
		uintptr(unsafe.Pointer(&mask)),
		uintptr(numaMaxNodeBits),
		uintptr(mbindStrict),
	)
	_ = errno // best-effort: ignore failures (e.g. unprivileged container, non-NUMA kernel)
	return buf
}

// Interleave allocates a buffer meant to be shared read-only across
// threads (x, y) and binds it with MPOL_INTERLEAVE-equivalent behaviour
// proportional to each partition's row share: pages interleaved in
// proportion to each partition's row count. Proportions
// sums to less than or equal to 1; any remainder is assigned to the last
// node.
func Interleave(n int, nodeShares []float64) []byte {
	buf := make([]byte, n)
	if n == 0 || len(nodeShares) == 0 {
		return buf
	}
	offset := 0
	for i, share := range nodeShares {
		size := int(float64(n) * share)
		if i == len(nodeShares)-1 {
			size = n - offset
		}
		if size <= 0 {
			continue
		}
		chunk := buf[offset : offset+size]
		bindChunk(chunk, i)
		offset += size
	}
	return buf
}

func bindChunk(chunk []byte, node int) {
	if len(chunk) == 0 {
		return
	}
	var mask uint64 = 1 << uint(node)
	unix.Syscall6(
		unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&chunk[0])),
		uintptr(len(chunk)),
		uintptr(mpolBind),
		uintptr(unsafe.Pointer(&mask)),
		uintptr(numaMaxNodeBits),
		uintptr(mbindStrict),
	)
}

// LockAndPin is a convenience helper a worker goroutine calls at startup:
// it locks the goroutine to its OS thread (required before affinity has
// any meaning) and pins that thread to cpu.
func LockAndPin(cpu int) error {
	runtime.LockOSThread()
	return Affinity(cpu)
}
