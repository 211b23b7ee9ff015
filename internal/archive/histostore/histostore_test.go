package histostore

import (
	"path/filepath"
	"testing"

	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "histo.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetH1RoundTrip(t *testing.T) {
	s := openTestStore(t)

	h := histo.NewH1D("x", "x title", 4, 0, 4)
	h.Fill(0.5, 1)
	h.Fill(2.5, 2)

	if err := s.PutH1("a/b", h, 1000); err != nil {
		t.Fatalf("PutH1() error = %v", err)
	}

	got, err := s.GetH1("a/b", "x")
	if err != nil {
		t.Fatalf("GetH1() error = %v", err)
	}
	if got.NBins() != h.NBins() || got.Entries() != h.Entries() {
		t.Fatalf("GetH1() = %+v, want NBins=%d Entries=%d", got, h.NBins(), h.Entries())
	}
	if got.BinContent(1) != h.BinContent(1) {
		t.Errorf("BinContent(1) = %v, want %v", got.BinContent(1), h.BinContent(1))
	}
}

func TestPutOverwritesExplicitly(t *testing.T) {
	s := openTestStore(t)

	h1 := histo.NewH1D("x", "", 2, 0, 2)
	h1.Fill(0.5, 1)
	if err := s.PutH1("a", h1, 1); err != nil {
		t.Fatalf("PutH1() error = %v", err)
	}

	h2 := histo.NewH1D("x", "", 2, 0, 2)
	h2.Fill(0.5, 5)
	if err := s.PutH1("a", h2, 2); err != nil {
		t.Fatalf("PutH1() second write error = %v", err)
	}

	got, err := s.GetH1("a", "x")
	if err != nil {
		t.Fatalf("GetH1() error = %v", err)
	}
	if got.BinContent(1) != 5 {
		t.Errorf("BinContent(1) after overwrite = %v, want 5 (the second write replaces, not merges)", got.BinContent(1))
	}
}

func TestGetMissingEntryReturnsArchiveIOError(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetH1("missing", "nope"); !recoerr.Is(err, recoerr.ErrArchiveIO) {
		t.Fatalf("GetH1() on missing entry: err = %v, want recoerr.ErrArchiveIO", err)
	}
}

func TestPutContainerAndListFolder(t *testing.T) {
	s := openTestStore(t)

	c := &histo.Container{TimesliceID: 7}
	h1 := histo.NewH1D("x", "", 2, 0, 2)
	h2 := histo.NewH2D("xy", "", 2, 0, 2, 2, 0, 2)
	p1 := histo.NewProf1D("px", "", 2, 0, 2, 0, 10)
	p2 := histo.NewProf2D("pxy", "", 2, 0, 2, 2, 0, 2, 0, 10)
	c.H1 = append(c.H1, h1)
	c.H2 = append(c.H2, h2)
	c.Prof1 = append(c.Prof1, p1)
	c.Prof2 = append(c.Prof2, p2)

	if err := s.PutContainer("run/ts7", c, 42); err != nil {
		t.Fatalf("PutContainer() error = %v", err)
	}

	entries, err := s.ListFolder("run/ts7")
	if err != nil {
		t.Fatalf("ListFolder() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("ListFolder() returned %d entries, want 4: %+v", len(entries), entries)
	}
}
