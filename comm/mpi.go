//go:build mpi

package comm

import (
	"github.com/cpmech/gosl/mpi"
)

// MPI runs collectives over the world communicator of an MPI job
type MPI struct {
	c *mpi.Communicator
}

// StartMPI initialises MPI and returns the world communicator together with
// the function that finalises it
func StartMPI() (*MPI, func()) {
	mpi.Start()
	return &MPI{c: mpi.NewCommunicator(nil)}, mpi.Stop
}

// IsMPIOn reports whether the process runs under an initialised MPI
func IsMPIOn() bool { return mpi.IsOn() }

func (m *MPI) Rank() int { return m.c.Rank() }
func (m *MPI) Size() int { return m.c.Size() }
func (m *MPI) Barrier()  { m.c.Barrier() }

func (m *MPI) AllReduceInt(v int, op ReduceOperator) int {
	buf := []int{v}
	m.AllReduceInts(buf, op)
	return buf[0]
}

func (m *MPI) AllReduceInts(v []int, op ReduceOperator) {
	dest := make([]int, len(v))
	switch op {
	case ReduceMin:
		m.c.AllReduceMinI(dest, v)
	case ReduceMax:
		m.c.AllReduceMaxI(dest, v)
	default:
		// counts and ids below 2^53 survive the float64 round trip
		orig := make([]float64, len(v))
		for i, x := range v {
			orig[i] = float64(x)
		}
		sum := make([]float64, len(v))
		m.c.AllReduceSum(sum, orig)
		for i, x := range sum {
			dest[i] = int(x)
		}
	}
	copy(v, dest)
}

func (m *MPI) AllReduceFloats(v []float64, op ReduceOperator) {
	dest := make([]float64, len(v))
	switch op {
	case ReduceMin:
		m.c.AllReduceMin(dest, v)
	case ReduceMax:
		m.c.AllReduceMax(dest, v)
	default:
		m.c.AllReduceSum(dest, v)
	}
	copy(v, dest)
}
