package trd2d

import (
	"math"
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// channelInRange reports whether ch extends cluster c's footprint by at
// most one pad on either side (spec.md §4.5: "the digi's channel pair
// is in-range of the cluster").
func channelInRange(c *Cluster, ch int) bool {
	return ch >= c.StartChannel-1 && ch <= c.EndChannel+1
}

// AddDigi implements spec.md §4.5 add-digi: locate the row's open
// cluster list, extend the first cluster within the time window and
// channel footprint, or start a new one. Masked channels (zero signal)
// still advance the footprint, since the caller is expected to pass
// them through like any other digi with Charge==0.
func AddDigi(rowClusters *[]Cluster, row int, d digi.Digi) {
	ch := int(d.Addr.Channel())
	for i := range *rowClusters {
		c := &(*rowClusters)[i]
		if math.Abs(c.StartTime-d.Time) < mergeTimeWindow && channelInRange(c, ch) {
			c.Digis = append(c.Digis, d)
			c.Charge += d.Charge
			c.LastActivity = d.Time
			if ch < c.StartChannel {
				c.StartChannel = ch
			}
			if ch > c.EndChannel {
				c.EndChannel = ch
			}
			return
		}
	}

	// No open cluster claims this digi: start a new one, inserted at
	// the temporally-correct position (clusters are kept in
	// start-time order; FindClusters sorts them by start channel
	// before its adjacency scan).
	nc := Cluster{
		Row:          row,
		StartChannel: ch,
		EndChannel:   ch,
		StartTime:    d.Time,
		LastActivity: d.Time,
		Charge:       d.Charge,
		Digis:        []digi.Digi{d},
	}
	pos := sort.Search(len(*rowClusters), func(i int) bool { return (*rowClusters)[i].StartTime >= nc.StartTime })
	*rowClusters = append(*rowClusters, Cluster{})
	copy((*rowClusters)[pos+1:], (*rowClusters)[pos:])
	(*rowClusters)[pos] = nc
}

// mergeable reports whether two same-row clusters a (earlier in
// channel) and b are adjacent-footprint fragments close enough in
// start time to merge, per spec.md §4.5 find-clusters.
func mergeable(a, b *Cluster) bool {
	if b.StartChannel > a.EndChannel+1 {
		return false // channel gap: not adjacent
	}
	window := adjacentMergeWindow
	if a.size() == 1 || b.size() == 1 {
		window = fragmentMergeWindow
	}
	return math.Abs(a.StartTime-b.StartTime) <= window
}

func mergeInto(a, b *Cluster) {
	a.Charge += b.Charge
	if b.StartTime < a.StartTime {
		a.StartTime = b.StartTime
	}
	if b.StartChannel < a.StartChannel {
		a.StartChannel = b.StartChannel
	}
	if b.EndChannel > a.EndChannel {
		a.EndChannel = b.EndChannel
	}
	if b.LastActivity > a.LastActivity {
		a.LastActivity = b.LastActivity
	}
	a.Digis = append(a.Digis, b.Digis...)
}

// FindClusters implements spec.md §4.5 find-clusters: repeatedly merges
// adjacent same-row fragments until no more merges apply, then splits
// the result into clusters still open (time-of-last-activity within
// keepWindow of tsEnd) and clusters ready for output.
func FindClusters(rowClusters []Cluster, tsEnd, keepWindow float64) (open, closed []Cluster) {
	sort.Slice(rowClusters, func(i, j int) bool { return rowClusters[i].StartChannel < rowClusters[j].StartChannel })

	merged := true
	for merged {
		merged = false
		for i := 0; i < len(rowClusters)-1; i++ {
			if mergeable(&rowClusters[i], &rowClusters[i+1]) {
				mergeInto(&rowClusters[i], &rowClusters[i+1])
				rowClusters = append(rowClusters[:i+1], rowClusters[i+2:]...)
				merged = true
				break
			}
		}
	}

	for _, c := range rowClusters {
		if tsEnd-c.LastActivity > keepWindow {
			closed = append(closed, c)
		} else {
			open = append(open, c)
		}
	}
	return open, closed
}
