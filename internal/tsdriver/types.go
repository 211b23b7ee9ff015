// Package tsdriver implements the timeslice driver (spec.md §6): it
// pulls timeslices from a Source, dispatches each subsystem's digi span
// to its calibrator/cluster-finder/hit-finder, and aggregates the
// per-module results into one RecoResults record per timeslice.
package tsdriver

import (
	"github.com/google/uuid"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/sts"
	"github.com/cbm-fles/tsreco/internal/tofbmon"
	"github.com/cbm-fles/tsreco/internal/trd1d"
	"github.com/cbm-fles/tsreco/internal/trd2d"
)

// Timeslice is one immutable unit of work pulled from a Source: a
// timeslice index, its start time, and every subsystem's raw digi span
// (spec.md §6 "Timeslice source").
type Timeslice struct {
	Index     uint64
	StartTime float64 // ns
	Digis     map[digi.System][]digi.Digi
}

// DigiEventView groups a contiguous digi range into one triggered event
// (spec.md §3 "list of digi-event views"). No event-building algorithm
// is in scope (spec.md Non-goals); RecoResults carries an empty slice of
// these rather than omitting the field, so archive records keep the
// shape a future event builder would populate.
type DigiEventView struct {
	StartIndex int
	EndIndex   int
}

// Track is a reconstructed particle track: per-track hit-index lists
// into the per-subsystem hit slices (spec.md §3 "Reco results"). No
// tracking algorithm is in scope (spec.md §1 Non-goals); RecoResults
// always carries an empty Tracks slice.
type Track struct {
	STSHitIndices   []int
	TRD2DHitIndices []int
	TRD1DHitIndices []int
}

// STSModuleResult is one STS module's per-timeslice output.
type STSModuleResult struct {
	Module       uint16
	FrontDigis   []digi.Digi
	BackDigis    []digi.Digi
	FrontCluster []sts.Cluster
	BackCluster  []sts.Cluster
	Hits         []sts.Hit
	Monitor      sts.Monitor
}

// TRD2DModuleResult is one TRD-2D module's per-timeslice output.
type TRD2DModuleResult struct {
	Module  uint16
	Digis   []digi.Digi
	Hits    []trd2d.Hit
	Monitor trd2d.Monitor
}

// TRD1DModuleResult is one TRD-1D module's per-timeslice output.
type TRD1DModuleResult struct {
	Module  uint16
	Digis   []digi.Digi
	Hits    []trd1d.Hit
	Monitor trd1d.Monitor
}

// RecoResults is the event-indexed aggregate spec.md §3 names: one
// record per timeslice, owned by the driver until handed to the archive
// writer (ownership transfers there; the driver must not reuse the
// slices afterwards).
type RecoResults struct {
	RunID     uuid.UUID
	Timeslice uint64
	StartTime float64

	DigiEventViews []DigiEventView

	STS   []STSModuleResult
	TRD2D []TRD2DModuleResult
	TRD1D []TRD1DModuleResult

	TOFDigis   []digi.Digi
	TOFMonitor tofbmon.Monitor
	BMonHits   []tofbmon.BMonHit

	Tracks []Track
}
