//go:build !metis

package partitions

// MetisAvailable reports whether the METIS strategy was compiled in
const MetisAvailable = false

func metisPartition(xadj, adjncy []int32, nparts int, eToP []int) error {
	return ErrNoMetis
}
