//go:build metis

package partitions

import (
	"fmt"

	metis "github.com/notargets/go-metis"
)

// MetisAvailable reports whether the METIS strategy was compiled in
const MetisAvailable = true

// metisPartition fills eToP with a k-way partition of the dual graph given
// in compressed rows
func metisPartition(xadj, adjncy []int32, nparts int, eToP []int) error {
	part, _, err := metis.PartGraphKway(xadj, adjncy, nil, nil, nil, int32(nparts), nil, nil, nil)
	if err != nil {
		return err
	}
	if len(part) != len(eToP) {
		return fmt.Errorf("metis returned %d parts for %d elements", len(part), len(eToP))
	}
	for k, p := range part {
		eToP[k] = int(p)
	}
	return nil
}
