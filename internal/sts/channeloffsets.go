package sts

import "github.com/cbm-fles/tsreco/internal/digi"

// channelOffsets implements stage 2 (spec.md §4.4): for a time-sorted
// (by channel, then time) digi stream, compute channelOffsets[c] = the
// index of the first digi on channel c, for every channel 0..nChannels.
// Tail channels past the last digi receive len(digis) (empty range).
//
// The original source is a parallel scan that detects a channel
// boundary per thread and writes every channel strictly between two
// neighbouring boundaries; a single sequential pass produces the
// identical channelOffsets array.
func channelOffsets(digis []digi.Digi, nChannels int) []int {
	offsets := make([]int, nChannels+1)
	c := 0
	for i, d := range digis {
		ch := int(d.Addr.Channel())
		for c <= ch {
			offsets[c] = i
			c++
		}
	}
	for ; c <= nChannels; c++ {
		offsets[c] = len(digis)
	}
	return offsets
}
