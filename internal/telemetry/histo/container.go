package histo

import "fmt"

// Container is one histogram-container data message (spec.md §6 wire
// protocol): everything filled for a single timeslice, grouped by
// histogram kind.
type Container struct {
	TimesliceID uint64
	H1          []*H1D
	H2          []*H2D
	Prof1       []*Prof1D
	Prof2       []*Prof2D
}

// Merge folds src into dst by histogram name (spec.md §8 "histogram merge
// commutativity/associativity"): a name present in both containers is
// merged in place; a name present only in src is appended to dst. dst's
// TimesliceID is left unchanged, matching the receiver's "merge by name"
// semantics for an integrated (all-timeslices) view.
func Merge(dst, src *Container) error {
	if err := mergeH1(dst, src); err != nil {
		return err
	}
	if err := mergeH2(dst, src); err != nil {
		return err
	}
	if err := mergeProf1(dst, src); err != nil {
		return err
	}
	return mergeProf2(dst, src)
}

func mergeH1(dst, src *Container) error {
	byName := make(map[string]*H1D, len(dst.H1))
	for _, h := range dst.H1 {
		byName[h.Name] = h
	}
	for _, h := range src.H1 {
		if existing, ok := byName[h.Name]; ok {
			if err := existing.Merge(h); err != nil {
				return fmt.Errorf("histo: merge container: %w", err)
			}
			continue
		}
		dst.H1 = append(dst.H1, h)
		byName[h.Name] = h
	}
	return nil
}

func mergeH2(dst, src *Container) error {
	byName := make(map[string]*H2D, len(dst.H2))
	for _, h := range dst.H2 {
		byName[h.Name] = h
	}
	for _, h := range src.H2 {
		if existing, ok := byName[h.Name]; ok {
			if err := existing.Merge(h); err != nil {
				return fmt.Errorf("histo: merge container: %w", err)
			}
			continue
		}
		dst.H2 = append(dst.H2, h)
		byName[h.Name] = h
	}
	return nil
}

func mergeProf1(dst, src *Container) error {
	byName := make(map[string]*Prof1D, len(dst.Prof1))
	for _, p := range dst.Prof1 {
		byName[p.Name] = p
	}
	for _, p := range src.Prof1 {
		if existing, ok := byName[p.Name]; ok {
			if err := existing.Merge(p); err != nil {
				return fmt.Errorf("histo: merge container: %w", err)
			}
			continue
		}
		dst.Prof1 = append(dst.Prof1, p)
		byName[p.Name] = p
	}
	return nil
}

func mergeProf2(dst, src *Container) error {
	byName := make(map[string]*Prof2D, len(dst.Prof2))
	for _, p := range dst.Prof2 {
		byName[p.Name] = p
	}
	for _, p := range src.Prof2 {
		if existing, ok := byName[p.Name]; ok {
			if err := existing.Merge(p); err != nil {
				return fmt.Errorf("histo: merge container: %w", err)
			}
			continue
		}
		dst.Prof2 = append(dst.Prof2, p)
		byName[p.Name] = p
	}
	return nil
}
