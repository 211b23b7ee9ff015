// Package registry implements the receiver side of spec.md §4.7's
// histogram telemetry protocol: "a background thread pulls messages with
// a timeout and merges received histograms into an internal registry (by
// name)". It sits downstream of wire.Receiver, which only decodes
// transport envelopes; Registry owns the by-name merge and the
// StoreVsTsId 2D-extension bookkeeping that envelope decoding alone
// doesn't provide.
package registry

import (
	"sync"

	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// Registry accumulates every histogram container a Receiver pulls in,
// merging same-named histograms in place and maintaining one "<name>_ts_id"
// 2D extension per StoreVsTsId-flagged H1D (spec.md §4.7 "Receiver").
type Registry struct {
	mu        sync.Mutex
	container *histo.Container
	tsExt     map[string]*histo.H2D
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{container: &histo.Container{}, tsExt: make(map[string]*histo.H2D)}
}

// tsIDSuffix names the StoreVsTsId extension derived from a histogram
// named name (spec.md §8 scenario 6: histogram "x" extends to "x_ts_id").
const tsIDSuffix = "_ts_id"

// Merge folds one incoming container into the registry: every histogram
// is merged into the running integrated view by name (histo.Merge's
// existing "new name appends, existing name sums bins/weights/total sums"
// semantics), and every StoreVsTsId-flagged H1D additionally accumulates
// into its timeslice-index 2D extension, keyed by the container's
// TimesliceID.
func (r *Registry) Merge(c *histo.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range c.H1 {
		if !h.Meta.Has(histo.FlagStoreVsTsID) {
			continue
		}
		ext, ok := r.tsExt[h.Name]
		if !ok {
			ext = histo.NewH2DTsID(h.Name+tsIDSuffix, h.Title+" vs timeslice", h)
			r.tsExt[h.Name] = ext
		}
		if err := ext.AccumulateColumn(int(c.TimesliceID), h); err != nil {
			return err
		}
	}

	return histo.Merge(r.container, c)
}

// Container returns a snapshot of the registry's integrated view, with
// every StoreVsTsId 2D extension appended to the H2 slice alongside
// whatever 2D histograms arrived directly. The returned container shares
// its histograms with the registry's internal state and must not be
// mutated by the caller.
func (r *Registry) Container() *histo.Container {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := &histo.Container{
		TimesliceID: r.container.TimesliceID,
		H1:          append([]*histo.H1D(nil), r.container.H1...),
		H2:          append([]*histo.H2D(nil), r.container.H2...),
		Prof1:       append([]*histo.Prof1D(nil), r.container.Prof1...),
		Prof2:       append([]*histo.Prof2D(nil), r.container.Prof2...),
	}
	for _, ext := range r.tsExt {
		out.H2 = append(out.H2, ext)
	}
	return out
}

// Reset clears every merged histogram and extension, backing the same
// "/Reset_Hist" control endpoint semantics as tsdriver.Driver.ResetHistograms.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.container = &histo.Container{}
	r.tsExt = make(map[string]*histo.H2D)
}
