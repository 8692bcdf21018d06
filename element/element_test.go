package element

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadModalLayout(t *testing.T) {
	q, err := NewQuadExp(7, []int{0, 1, 2, 3}, []int{10, 11, 12, 13},
		[]Orientation{Forwards, Forwards, Backwards, Backwards}, 5, Modal)
	require.NoError(t, err)

	assert.Equal(t, 25, q.Ncoeffs())
	assert.Equal(t, 16, q.NumBndryCoeffs())
	assert.Equal(t, 4, q.Nverts())
	assert.Equal(t, 4, q.Nedges())
	assert.Equal(t, []int{0, 1, 6, 5}, []int{
		q.VertexLocalIndex(0), q.VertexLocalIndex(1), q.VertexLocalIndex(2), q.VertexLocalIndex(3)})
	assert.Equal(t, ModifiedA, q.EdgeBasisType(0))
	assert.Equal(t, 5, q.EdgeNcoeffs(2))

	idx, sign := q.EdgeInteriorLocalIndices(0, Forwards)
	assert.Equal(t, []int{2, 3, 4}, idx)
	assert.Equal(t, []int{1, 1, 1}, sign)

	idx, sign = q.EdgeInteriorLocalIndices(0, Backwards)
	assert.Equal(t, []int{2, 3, 4}, idx)
	assert.Equal(t, []int{1, -1, 1}, sign)

	// edge 2 runs against the traversal, so a backwards mesh edge is aligned
	// with its parameterisation
	idx, sign = q.EdgeInteriorLocalIndices(2, Backwards)
	assert.Equal(t, []int{7, 8, 9}, idx)
	assert.Equal(t, []int{1, 1, 1}, sign)

	assert.Len(t, q.InteriorLocalIndices(), 9)
	assert.Equal(t, 4, q.GetProperties().Order)
	assert.Equal(t, 9, q.GetProperties().NIp)
}

func TestQuadNodalLayout(t *testing.T) {
	q, err := NewQuadExp(0, []int{0, 1, 2, 3}, []int{0, 1, 2, 3},
		[]Orientation{Forwards, Forwards, Forwards, Forwards}, 4, Nodal)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 3, 15, 12}, []int{
		q.VertexLocalIndex(0), q.VertexLocalIndex(1), q.VertexLocalIndex(2), q.VertexLocalIndex(3)})

	idx, sign := q.EdgeInteriorLocalIndices(1, Forwards)
	assert.Equal(t, []int{7, 11}, idx)
	assert.Equal(t, []int{1, 1}, sign)

	// nodal edges reverse their nodes rather than changing sign
	idx, sign = q.EdgeInteriorLocalIndices(2, Forwards)
	assert.Equal(t, []int{14, 13}, idx)
	assert.Equal(t, []int{1, 1}, sign)

	assert.Equal(t, []int{5, 6, 9, 10}, q.InteriorLocalIndices())
}

func TestTriLayout(t *testing.T) {
	tri, err := NewTriExp(3, []int{4, 5, 6}, []int{7, 8, 9},
		[]Orientation{Forwards, Backwards, Forwards}, 4, Modal)
	require.NoError(t, err)

	assert.Equal(t, 10, tri.Ncoeffs())
	assert.Equal(t, 9, tri.NumBndryCoeffs())
	assert.Equal(t, 8, tri.EdgeID(1))
	assert.Equal(t, Backwards, tri.EdgeOrientation(1))
	assert.Equal(t, ModifiedB, tri.EdgeBasisType(2))

	idx, _ := tri.EdgeInteriorLocalIndices(1, Forwards)
	assert.Equal(t, []int{5, 6}, idx)
	_, sign := tri.EdgeInteriorLocalIndices(2, Forwards)
	assert.Equal(t, []int{1, -1}, sign)
	assert.Equal(t, []int{9}, tri.InteriorLocalIndices())
}

func TestSegLayout(t *testing.T) {
	s, err := NewSegExp(4, [2]int{9, 2}, Backwards, 5, Modal)
	require.NoError(t, err)
	assert.Equal(t, 9, s.VertexID(0))
	assert.Equal(t, 1, s.VertexLocalIndex(1))
	idx, sign := s.EdgeInteriorLocalIndices(s.Orientation())
	assert.Equal(t, []int{2, 3, 4}, idx)
	assert.Equal(t, []int{1, -1, 1}, sign)

	n, err := NewSegExp(4, [2]int{9, 2}, Backwards, 4, Nodal)
	require.NoError(t, err)
	assert.Equal(t, 3, n.VertexLocalIndex(1))
	idx, sign = n.EdgeInteriorLocalIndices(Backwards)
	assert.Equal(t, []int{2, 1}, idx)
	assert.Equal(t, []int{1, 1}, sign)
}

func TestCapabilityChecks(t *testing.T) {
	s, err := NewSegExp(0, [2]int{0, 1}, Forwards, 3, Modal)
	require.NoError(t, err)
	_, err = As2D(s)
	assert.True(t, errors.Is(err, ErrCapability))

	q, err := NewQuadExp(0, []int{0, 1, 2, 3}, []int{0, 1, 2, 3},
		[]Orientation{Forwards, Forwards, Forwards, Forwards}, 2, Modal)
	require.NoError(t, err)
	_, err = As1D(q)
	assert.True(t, errors.Is(err, ErrCapability))
	e2, err := As2D(q)
	require.NoError(t, err)
	assert.Equal(t, 4, e2.Nverts())

	_, err = As2D(nil)
	assert.ErrorIs(t, err, ErrCapability)
}

func TestInvalidTopology(t *testing.T) {
	_, err := NewQuadExp(0, []int{0, 1, 2}, []int{0, 1, 2, 3},
		[]Orientation{Forwards, Forwards, Forwards, Forwards}, 3, Modal)
	assert.Error(t, err)
	_, err = NewTriExp(0, []int{0, 1, 2}, []int{0, 1, 2},
		[]Orientation{Forwards, Forwards, Forwards}, 1, Modal)
	assert.Error(t, err)
}
