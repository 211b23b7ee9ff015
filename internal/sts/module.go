package sts

import "github.com/cbm-fles/tsreco/internal/digi"

// sideResult is the stage 1-4 output for one module side: materialized
// clusters, their time-sorted index, and the running max cluster
// timing error stage 6 needs for its coarse time-window cut.
type sideResult struct {
	clusters     []Cluster
	clusterIdx   []ClusterIdx
	maxTimeError float64
	overflow     int
}

// processSide runs stages 1-5 for one module side's digi stream.
func processSide(digis []digi.Digi, side Side, param digi.ModuleParam, asic AsicParams) sideResult {
	// Work on a copy: sortDigisChannelTime mutates order in place and
	// callers may hold the slice of a shared timeslice buffer.
	d := make([]digi.Digi, len(digis))
	copy(d, digis)
	sortDigisChannelTime(d)

	offsets := channelOffsets(d, param.NChannels)
	connectors := make([]Connector, len(d))
	deltaT := digiTimeCut(param)
	connectDigis(d, connectors, offsets, param.NChannels, deltaT)

	bucket := NewBucket[Cluster](param.MaxClustersPerSide)
	var maxErr AtomicMaxFloat64
	overflow := materializeClusters(d, connectors, side, param.NChannels, asic, bucket, &maxErr)

	clusters := bucket.Slice()
	return sideResult{
		clusters:     clusters,
		clusterIdx:   buildClusterIdx(clusters),
		maxTimeError: maxErr.Load(),
		overflow:     overflow,
	}
}

// FindHits runs the full seven-stage STS pipeline for a single module
// (spec.md §4.4): independent front/back cluster finding, then
// front-back strip matching into space points. digisFront and
// digisBack need not be pre-sorted; they are digis already assigned to
// this module's front and back sides respectively.
func FindHits(digisFront, digisBack []digi.Digi, param digi.ModuleParam, asicFront, asicBack AsicParams) ([]Cluster, []Cluster, []Hit, Monitor) {
	front := processSide(digisFront, SideFront, param, asicFront)
	back := processSide(digisBack, SideBack, param, asicBack)

	mon := Monitor{ClusterBucketOverflow: front.overflow + back.overflow}

	hitBucket := NewBucket[Hit](param.MaxHitsPerModule)
	_, hitOverflow, monster := matchModuleSide(
		front.clusterIdx, back.clusterIdx,
		front.clusters, back.clusters,
		front.maxTimeError, back.maxTimeError,
		param.NChannels, param.Geometry, param,
		hitBucket,
	)
	mon.HitBucketOverflow += hitOverflow
	if monster {
		mon.MonsterEventModules++
	}

	return front.clusters, back.clusters, hitBucket.Slice(), mon
}
