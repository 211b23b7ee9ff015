package sts

import "sort"

// buildClusterIdx implements stage 5 (spec.md §4.4): pairs each
// materialized cluster's time with its index in the payload bucket,
// then sorts only that (time, index) array by time. The payload array
// itself is never reordered, matching ClusterIdx's purpose in
// original_source/algo/detectors/sts/Hitfinder.h: keep the sort key
// small (8 bytes) independent of sizeof(Cluster).
func buildClusterIdx(clusters []Cluster) []ClusterIdx {
	idx := make([]ClusterIdx, len(clusters))
	for i, c := range clusters {
		idx[i] = ClusterIdx{Time: uint32(c.Time), Idx: uint32(i)}
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a].Time < idx[b].Time })
	return idx
}
