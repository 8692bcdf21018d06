package partitions

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/SuPenghui/nektar/element"
	"github.com/SuPenghui/nektar/mesh"
	"github.com/SuPenghui/nektar/reorder"
)

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	// Mesh connectivity
	Mesh *MeshConnectivity

	// Partitioning parameters. NumPartitions wins over TargetPartitionSize
	// when both are set.
	NumPartitions       int
	TargetPartitionSize int
	Strategy            PartitionStrategy
}

// MeshConnectivity provides the mesh topology needed for partitioning
type MeshConnectivity struct {
	NumElements  int
	ElementTypes []element.ElementGeometry

	// Element-to-element connectivity across each local edge
	EToE [][]int
}

// ErrNoMetis is returned for MetisPartition in builds without the metis tag
var ErrNoMetis = errors.New("built without the metis tag")

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive elements
	RoundRobin                              // Distribute cyclically
	GraphPartition                          // Recursive bisection of the dual graph
	MetisPartition                          // METIS k-way partition of the dual graph
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round robin"
	case GraphPartition:
		return "graph"
	case MetisPartition:
		return "metis"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ConnectivityFromMesh extracts the partitioning input from a mesh
func ConnectivityFromMesh(m *mesh.Mesh) *MeshConnectivity {
	mc := &MeshConnectivity{
		NumElements: len(m.Elements),
		EToE:        m.Connectivity(),
	}
	for _, el := range m.Elements {
		mc.ElementTypes = append(mc.ElementTypes, el.Shape)
	}
	return mc
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	numPartitions := pb.calculateNumPartitions()
	if numPartitions > pb.Mesh.NumElements {
		return nil, fmt.Errorf("cannot split %d elements into %d partitions",
			pb.Mesh.NumElements, numPartitions)
	}

	eToP, err := pb.partitionElements(numPartitions)
	if err != nil {
		return nil, err
	}
	partitions := pb.createPartitions(eToP, numPartitions)
	kpartMax := pb.calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateNumPartitions determines the partition count
func (pb *PartitionBuilder) calculateNumPartitions() int {
	if pb.NumPartitions > 0 {
		return pb.NumPartitions
	}
	numPartitions := 1
	if pb.TargetPartitionSize > 0 {
		numPartitions = int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

// partitionElements assigns elements to partitions
func (pb *PartitionBuilder) partitionElements(numPartitions int) ([]int, error) {
	eToP := make([]int, pb.Mesh.NumElements)

	switch pb.Strategy {
	case RoundRobin:
		for i := 0; i < pb.Mesh.NumElements; i++ {
			eToP[i] = i % numPartitions
		}

	case GraphPartition:
		dual := reorder.NewGraph(pb.Mesh.NumElements)
		for k, nbrs := range pb.Mesh.EToE {
			for _, nb := range nbrs {
				dual.Connect(k, nb)
			}
		}
		all := make([]int, pb.Mesh.NumElements)
		for i := range all {
			all[i] = i
		}
		bisectElements(dual, all, 0, numPartitions, eToP)

	case MetisPartition:
		if numPartitions == 1 {
			break
		}
		xadj, adjncy := dualGraphCSR(pb.Mesh.EToE)
		if err := metisPartition(xadj, adjncy, numPartitions, eToP); err != nil {
			return nil, fmt.Errorf("metis partition of %d elements: %w", pb.Mesh.NumElements, err)
		}

	default:
		// balanced blocks of consecutive elements
		for i := 0; i < pb.Mesh.NumElements; i++ {
			eToP[i] = i * numPartitions / pb.Mesh.NumElements
		}
	}

	return eToP, nil
}

// dualGraphCSR packs the element neighbours into compressed rows, dropping
// boundary self references and repeated neighbours
func dualGraphCSR(EToE [][]int) (xadj, adjncy []int32) {
	xadj = make([]int32, 0, len(EToE)+1)
	xadj = append(xadj, 0)
	for k, nbrs := range EToE {
		row := make([]int, 0, len(nbrs))
		for _, nb := range nbrs {
			if nb != k {
				row = append(row, nb)
			}
		}
		sort.Ints(row)
		for i, nb := range row {
			if i > 0 && row[i-1] == nb {
				continue
			}
			adjncy = append(adjncy, int32(nb))
		}
		xadj = append(xadj, int32(len(adjncy)))
	}
	return xadj, adjncy
}

// bisectElements splits set in breadth first order from a pseudo-peripheral
// element, sized in proportion to the partitions each half receives
func bisectElements(dual *reorder.Graph, set []int, first, parts int, eToP []int) {
	if parts == 1 {
		for _, k := range set {
			eToP[k] = first
		}
		return
	}
	in := make(map[int]bool, len(set))
	for _, k := range set {
		in[k] = true
	}
	inSet := func(k int) bool { return in[k] }

	seen := make(map[int]bool, len(set))
	order := make([]int, 0, len(set))
	for _, k := range set {
		if seen[k] {
			continue
		}
		_, levels := dual.PseudoPeripheral(k, inSet)
		for _, lev := range levels {
			for _, e := range lev {
				seen[e] = true
				order = append(order, e)
			}
		}
	}

	left := parts / 2
	cut := len(order) * left / parts
	bisectElements(dual, sortedCopy(order[:cut]), first, left, eToP)
	bisectElements(dual, sortedCopy(order[cut:]), first+left, parts-left, eToP)
}

func sortedCopy(s []int) []int {
	out := append([]int(nil), s...)
	sort.Ints(out)
	return out
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)

	for i := range partitions {
		partitions[i] = Partition{
			ID:           i,
			Elements:     make([]int, 0),
			ElementTypes: make([]element.ElementGeometry, 0),
		}
	}

	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		if pb.Mesh.ElementTypes != nil {
			partitions[part].ElementTypes = append(partitions[part].ElementTypes,
				pb.Mesh.ElementTypes[elem])
		}
		partitions[part].NumElements++
	}

	for i := range partitions {
		partitions[i].TypeGroups = createElementGroups(&partitions[i])
	}

	return partitions
}

// createElementGroups organizes elements by type within a partition, in
// order of first appearance
func createElementGroups(p *Partition) []ElementGroup {
	if len(p.ElementTypes) == 0 {
		return nil
	}

	var groups []ElementGroup
	index := make(map[element.ElementGeometry]int)
	for i, elemType := range p.ElementTypes {
		g, ok := index[elemType]
		if !ok {
			g = len(groups)
			index[elemType] = g
			groups = append(groups, ElementGroup{ElementType: elemType})
		}
		groups[g].LocalIDs = append(groups[g].LocalIDs, i)
		groups[g].Count++
	}
	return groups
}

// calculateKpartMax finds maximum elements across all partitions
func (pb *PartitionBuilder) calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}
