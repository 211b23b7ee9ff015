package trd1d

import (
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// ClusterizeRow implements spec.md §4.6's per-row clustering: a
// self-triggered digi starts a cluster, adjacent self-triggered digis
// extend it, and an adjacent neighbour-triggered digi terminates that
// side. digis need not be pre-sorted; ClusterizeRow sorts its own copy
// by channel first (mirroring internal/sts stage 1's per-channel
// ordering requirement).
func ClusterizeRow(row int, digis []digi.Digi) []Cluster {
	d := make([]digi.Digi, len(digis))
	copy(d, digis)
	sort.Slice(d, func(i, j int) bool { return d[i].Addr.Channel() < d[j].Addr.Channel() })

	var clusters []Cluster
	var current *Cluster

	flush := func() {
		if current != nil {
			clusters = append(clusters, *current)
			current = nil
		}
	}

	for _, dg := range d {
		ch := int(dg.Addr.Channel())
		adjacent := current != nil && ch == current.EndChannel+1

		if !adjacent {
			flush()
			if dg.Trigger == digi.TriggerSelf {
				current = &Cluster{Row: row, StartChannel: ch, EndChannel: ch, StartTime: dg.Time, Digis: []digi.Digi{dg}}
			}
			// An orphan neighbour-triggered digi (no adjacent growing
			// cluster to terminate) carries no standalone cluster.
			continue
		}

		current.Digis = append(current.Digis, dg)
		current.EndChannel = ch
		if dg.Trigger == digi.TriggerNeighbour {
			current.ClosedRight = true
			flush()
		}
	}
	flush()
	return clusters
}
