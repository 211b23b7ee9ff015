package sts

import (
	"sort"

	"github.com/cbm-fles/tsreco/internal/digi"
)

// sortDigisChannelTime implements stage 1 (spec.md §4.4): sort a
// module side's digis by the composite key (channel, time). The
// original source does this with a block-level radix sort over a
// scratch buffer on the composite 64-bit key (channel<<32|time); on a
// CPU a single comparison sort over the same ordering produces the
// identical result, so that's what this does — the scratch-buffer/copy-
// back dance in the original only matters for the GPU block-sort
// implementation, which has no analogue here.
func sortDigisChannelTime(digis []digi.Digi) {
	sort.SliceStable(digis, func(i, j int) bool {
		ci, cj := digis[i].Addr.Channel(), digis[j].Addr.Channel()
		if ci != cj {
			return ci < cj
		}
		return digis[i].Time < digis[j].Time
	})
}
