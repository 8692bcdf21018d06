package comm

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// abortSignal unwinds a rank blocked in a collective of a failed group
type abortSignal struct{}

type contribution struct {
	ints   []int
	floats []float64
	op     ReduceOperator
}

// group is the shared state of in-process ranks. The last rank to arrive at
// a collective combines the contributions in rank order and publishes a
// fresh result for its generation.
type group struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	gen     uint64
	arrived int
	done    int
	slots   []contribution
	result  contribution
	cause   error
}

func newGroup(n int) *group {
	g := &group{size: n, slots: make([]contribution, n)}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *group) failLocked(err error) {
	if g.cause == nil {
		g.cause = err
	}
	g.cond.Broadcast()
}

func (g *group) fail(err error) {
	g.mu.Lock()
	g.failLocked(err)
	g.mu.Unlock()
}

func (g *group) finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done++
	if g.arrived > 0 && g.arrived+g.done >= g.size {
		g.failLocked(fmt.Errorf("%d rank(s) returned while %d wait in a collective", g.done, g.arrived))
	}
}

func (g *group) collective(rank int, c contribution) contribution {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cause != nil {
		panic(abortSignal{})
	}
	gen := g.gen
	g.slots[rank] = c
	g.arrived++

	if g.arrived == g.size {
		res, err := g.combine()
		g.arrived = 0
		g.gen++
		if err != nil {
			g.failLocked(err)
			panic(abortSignal{})
		}
		g.result = res
		g.cond.Broadcast()
		return res
	}
	if g.arrived+g.done >= g.size {
		g.failLocked(fmt.Errorf("%d rank(s) returned while %d wait in a collective", g.done, g.arrived))
	}
	for gen == g.gen && g.cause == nil {
		g.cond.Wait()
	}
	if gen == g.gen {
		panic(abortSignal{})
	}
	return g.result
}

func (g *group) combine() (contribution, error) {
	first := g.slots[0]
	res := contribution{op: first.op}
	if first.ints != nil {
		res.ints = append([]int(nil), first.ints...)
	}
	if first.floats != nil {
		res.floats = append([]float64(nil), first.floats...)
	}
	for p := 1; p < g.size; p++ {
		s := g.slots[p]
		if s.op != first.op || len(s.ints) != len(first.ints) || len(s.floats) != len(first.floats) {
			return contribution{}, fmt.Errorf("collective mismatch: rank 0 (%v, %d ints, %d floats) vs rank %d (%v, %d ints, %d floats)",
				first.op, len(first.ints), len(first.floats), p, s.op, len(s.ints), len(s.floats))
		}
		reduceInts(res.ints, s.ints, first.op)
		reduceFloats(res.floats, s.floats, first.op)
	}
	return res, nil
}

// local is one rank's view of an in-process group
type local struct {
	rank int
	g    *group
}

func (l *local) Rank() int { return l.rank }
func (l *local) Size() int { return l.g.size }

func (l *local) AllReduceInt(v int, op ReduceOperator) int {
	buf := []int{v}
	l.AllReduceInts(buf, op)
	return buf[0]
}

func (l *local) AllReduceInts(v []int, op ReduceOperator) {
	in := make([]int, len(v))
	copy(in, v)
	res := l.g.collective(l.rank, contribution{ints: in, op: op})
	copy(v, res.ints)
}

func (l *local) AllReduceFloats(v []float64, op ReduceOperator) {
	in := make([]float64, len(v))
	copy(in, v)
	res := l.g.collective(l.rank, contribution{floats: in, op: op})
	copy(v, res.floats)
}

func (l *local) Barrier() {
	l.g.collective(l.rank, contribution{op: ReduceSum})
}

// Run executes fn on n in-process ranks, one goroutine each, and waits for
// all of them. The first failure aborts the group; ranks blocked in a
// collective then unwind with ErrAborted and Run returns the original cause.
func Run(n int, fn func(c Communicator) error) error {
	if n < 1 {
		return fmt.Errorf("group needs at least one rank, got %d", n)
	}
	g := newGroup(n)
	var eg errgroup.Group
	for rank := 0; rank < n; rank++ {
		l := &local{rank: rank, g: g}
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(abortSignal); ok {
						err = ErrAborted
						return
					}
					err = fmt.Errorf("rank %d panicked: %v", l.rank, r)
					g.fail(err)
				}
			}()
			if err = fn(l); err != nil {
				err = fmt.Errorf("rank %d: %w", l.rank, err)
				g.fail(err)
				return err
			}
			g.finish()
			return nil
		})
	}
	err := eg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cause != nil {
		return g.cause
	}
	return err
}
