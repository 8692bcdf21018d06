package mesh

import (
	"fmt"
	"sort"
	"strconv"

	gmesh "github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"
)

// ReadGmsh reads a planar Gmsh file and converts it with FromGmsh
func ReadGmsh(path string) (*Mesh, [][2]string, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read mesh file %s: %w", path, err)
	}
	m, periodic, err := FromGmsh(msh)
	if err != nil {
		return nil, nil, fmt.Errorf("mesh file %s: %w", path, err)
	}
	return m, periodic, nil
}

// boundaryLine is a line element of the file with its physical group and
// elementary curve
type boundaryLine struct {
	a, b     int
	physical int
	entity   int
}

// FromGmsh converts a mesh read by gocfd. Surface elements become the mesh
// elements, with high order nodes dropped and clockwise cells reversed.
// Line elements carrying a physical group become regions named after the
// group, in increasing group order. Every curve link of the $Periodic section
// is returned as a pair of region names, master first, ready for
// MatchPeriodic.
func FromGmsh(msh *gmesh.Mesh) (*Mesh, [][2]string, error) {
	verts := make([][2]float64, len(msh.Vertices))
	for i, v := range msh.Vertices {
		verts[i] = [2]float64{v[0], v[1]}
	}

	var cells [][]int
	var lines []boundaryLine
	for k := 0; k < msh.NumElements; k++ {
		ev := msh.EtoV[k]
		switch msh.ElementTypes[k].GetDimension() {
		case 2:
			n, err := cornerCount(len(ev))
			if err != nil {
				return nil, nil, fmt.Errorf("element %d: %w", k, err)
			}
			cell := append([]int(nil), ev[:n]...)
			if signedArea(verts, cell) < 0 {
				for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
					cell[i], cell[j] = cell[j], cell[i]
				}
			}
			cells = append(cells, cell)
		case 1:
			tags := msh.ElementTags[k]
			if len(tags) < 2 {
				// a curve outside every physical group
				continue
			}
			lines = append(lines, boundaryLine{
				a: ev[0], b: ev[1],
				physical: tags[0],
				entity:   tags[len(tags)-1],
			})
		}
	}
	if len(cells) == 0 {
		return nil, nil, fmt.Errorf("no surface elements: %w", ErrTopology)
	}

	m, err := NewMesh(verts, cells)
	if err != nil {
		return nil, nil, err
	}
	edgeIDs := make(map[edgeKey]int, len(m.Edges))
	for id, e := range m.Edges {
		edgeIDs[keyOf(e[0], e[1])] = id
	}

	names := make(map[int]string)
	for tag, name := range msh.BoundaryTags {
		names[tag] = name
	}
	regionOf := func(physical int) string {
		if name, ok := names[physical]; ok && name != "" {
			return name
		}
		return strconv.Itoa(physical)
	}

	groups := make(map[int][]int)
	curveRegion := make(map[int]string)
	for _, l := range lines {
		id, ok := edgeIDs[keyOf(l.a, l.b)]
		if !ok {
			return nil, nil, fmt.Errorf("line %d-%d of group %d is not an element edge: %w",
				l.a, l.b, l.physical, ErrTopology)
		}
		groups[l.physical] = append(groups[l.physical], id)
		curveRegion[l.entity] = regionOf(l.physical)
	}
	physicals := make([]int, 0, len(groups))
	for p := range groups {
		physicals = append(physicals, p)
	}
	sort.Ints(physicals)
	for _, p := range physicals {
		if err := m.AddRegion(regionOf(p), groups[p]); err != nil {
			return nil, nil, err
		}
	}

	var periodic [][2]string
	seen := make(map[[2]string]bool)
	for _, p := range msh.Periodics {
		if p.Dimension != 1 {
			continue
		}
		master, ok := curveRegion[p.MasterTag]
		if !ok {
			return nil, nil, fmt.Errorf("periodic curve %d belongs to no physical group: %w", p.MasterTag, ErrTopology)
		}
		slave, ok := curveRegion[p.SlaveTag]
		if !ok {
			return nil, nil, fmt.Errorf("periodic curve %d belongs to no physical group: %w", p.SlaveTag, ErrTopology)
		}
		pair := [2]string{master, slave}
		if !seen[pair] {
			seen[pair] = true
			periodic = append(periodic, pair)
		}
	}
	return m, periodic, nil
}

// cornerCount maps the node count of a Gmsh triangle or quadrilateral of
// any order to its number of corners
func cornerCount(nodes int) (int, error) {
	switch nodes {
	case 3, 6, 10:
		return 3, nil
	case 4, 8, 9, 16:
		return 4, nil
	}
	return 0, fmt.Errorf("surface element with %d nodes: %w", nodes, ErrTopology)
}
