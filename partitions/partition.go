package partitions

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/SuPenghui/nektar/element"
)

// Partition is the set of elements owned by one rank
type Partition struct {
	// Unique identifier for this partition, equal to the owning rank
	ID int

	// Element membership
	Elements    []int // Global element indices in this partition, increasing
	NumElements int   // Actual number of elements
	MaxElements int   // Largest partition size of the layout

	// Mixed element support
	ElementTypes []element.ElementGeometry // Type of each element
	TypeGroups   []ElementGroup            // Grouped by element type
}

// ElementGroup represents elements of the same type within a partition
type ElementGroup struct {
	ElementType element.ElementGeometry
	Count       int   // Number of elements of this type
	LocalIDs    []int // Indices within the partition
}

// PartitionLayout manages the complete mesh decomposition
type PartitionLayout struct {
	// All partitions in the mesh
	Partitions []Partition

	// Global sizing information
	KpartMax      int // max(NumElements) across all partitions
	TotalElements int // Sum of all actual elements across partitions
	NumPartitions int // Total number of partitions

	// Element to partition mapping
	EToP []int // Length TotalElements: element k belongs to partition EToP[k]
}

// InterfaceEdge is an element edge whose neighbour lives in another partition
type InterfaceEdge struct {
	LocalElement    int // Element index within partition
	LocalEdge       int // Edge index within element
	RemotePartition int // Partition owning the neighbour
	RemoteElement   int // Global element ID of the neighbour
}

// GetPartition returns the partition containing element k
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	actualMax := 0
	total := 0
	for _, p := range pl.Partitions {
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		if p.NumElements == 0 {
			return fmt.Errorf("partition %d owns no elements", p.ID)
		}
		for _, k := range p.Elements {
			if pl.GetPartition(k) != p.ID {
				return fmt.Errorf("element %d listed in partition %d but EToP says %d",
					k, p.ID, pl.GetPartition(k))
			}
		}
		total += p.NumElements
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, layout has %d", total, pl.TotalElements)
	}
	return nil
}

// InterfaceEdges lists, for partition partID, the element edges whose
// neighbour lies in another partition. EToE points an element at itself
// across a boundary edge.
func (pl *PartitionLayout) InterfaceEdges(partID int, EToE [][]int) []InterfaceEdge {
	var out []InterfaceEdge
	partition := pl.Partitions[partID]
	for localElem, globalElem := range partition.Elements {
		for edge, neighbor := range EToE[globalElem] {
			if neighbor == globalElem {
				continue
			}
			if np := pl.GetPartition(neighbor); np != partID && np >= 0 {
				out = append(out, InterfaceEdge{
					LocalElement:    localElem,
					LocalEdge:       edge,
					RemotePartition: np,
					RemoteElement:   neighbor,
				})
			}
		}
	}
	return out
}

// PartitionStatistics computes load balance and interface metrics
func (pl *PartitionLayout) PartitionStatistics(EToE [][]int) PartitionStats {
	sizes := make([]float64, len(pl.Partitions))
	for i, p := range pl.Partitions {
		sizes[i] = float64(p.NumElements)
	}
	stats := PartitionStats{NumPartitions: pl.NumPartitions}
	if len(sizes) > 0 {
		stats.MinElements = int(floats.Min(sizes))
		stats.MaxElements = int(floats.Max(sizes))
		stats.AvgElements = stat.Mean(sizes, nil)
	}

	for _, p := range pl.Partitions {
		neighbors := make(map[int]bool)
		for _, ie := range pl.InterfaceEdges(p.ID, EToE) {
			neighbors[ie.RemotePartition] = true
			stats.CutEdges++
		}
		if len(neighbors) > stats.MaxNeighbors {
			stats.MaxNeighbors = len(neighbors)
		}
	}
	// every cut edge is seen from both sides
	stats.CutEdges /= 2
	if stats.AvgElements > 0 {
		stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	}

	return stats
}

// PartitionStats summarises the balance and interface size of a layout
type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
	CutEdges      int     // Edges shared by two partitions
	MaxNeighbors  int     // Largest number of neighbouring partitions
}
