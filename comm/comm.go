// Package comm provides the blocking collective operations used while a
// numbering is built across ranks.
package comm

import (
	"errors"
	"fmt"
	"math"
)

// ErrAborted is returned by ranks that were blocked in a collective when a
// peer of the same group failed
var ErrAborted = errors.New("collective aborted by a failing rank")

// ReduceOperator selects how an all-reduce combines contributions
type ReduceOperator uint8

const (
	ReduceSum ReduceOperator = iota
	ReduceMin
	ReduceMax
)

func (op ReduceOperator) String() string {
	switch op {
	case ReduceSum:
		return "sum"
	case ReduceMin:
		return "min"
	case ReduceMax:
		return "max"
	}
	return fmt.Sprintf("ReduceOperator(%d)", uint8(op))
}

// Communicator is the collective contract. Every rank of a group must call
// the same collectives in the same order with slices of equal length.
// Slice reductions work in place.
type Communicator interface {
	Rank() int
	Size() int
	AllReduceInt(v int, op ReduceOperator) int
	AllReduceInts(v []int, op ReduceOperator)
	AllReduceFloats(v []float64, op ReduceOperator)
	Barrier()
}

// Serial is the communicator of a single rank
type Serial struct{}

func (Serial) Rank() int                                   { return 0 }
func (Serial) Size() int                                   { return 1 }
func (Serial) AllReduceInt(v int, _ ReduceOperator) int    { return v }
func (Serial) AllReduceInts(_ []int, _ ReduceOperator)     {}
func (Serial) AllReduceFloats(_ []float64, _ ReduceOperator) {}
func (Serial) Barrier()                                    {}

// AllGatherInts concatenates every rank's list in rank order. The sizes are
// exchanged first, then each rank writes its values at its prefix offset in
// a buffer filled with math.MinInt, combined with a max reduction so ids are
// never summed.
func AllGatherInts(c Communicator, local []int) (all, counts, offsets []int) {
	n := c.Size()
	counts = make([]int, n)
	counts[c.Rank()] = len(local)
	c.AllReduceInts(counts, ReduceSum)

	offsets = make([]int, n+1)
	for p := 0; p < n; p++ {
		offsets[p+1] = offsets[p] + counts[p]
	}
	all = make([]int, offsets[n])
	for i := range all {
		all[i] = math.MinInt
	}
	copy(all[offsets[c.Rank()]:], local)
	c.AllReduceInts(all, ReduceMax)
	return all, counts, offsets[:n]
}

func reduceInts(dst, src []int, op ReduceOperator) {
	for i, v := range src {
		switch op {
		case ReduceSum:
			dst[i] += v
		case ReduceMin:
			if v < dst[i] {
				dst[i] = v
			}
		case ReduceMax:
			if v > dst[i] {
				dst[i] = v
			}
		}
	}
}

func reduceFloats(dst, src []float64, op ReduceOperator) {
	for i, v := range src {
		switch op {
		case ReduceSum:
			dst[i] += v
		case ReduceMin:
			dst[i] = math.Min(dst[i], v)
		case ReduceMax:
			dst[i] = math.Max(dst[i], v)
		}
	}
}
