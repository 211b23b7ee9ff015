package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/sts"
	"github.com/cbm-fles/tsreco/internal/tsdriver"
)

func testRecord(runID uuid.UUID, ts uint64) *tsdriver.RecoResults {
	return &tsdriver.RecoResults{
		RunID:          runID,
		Timeslice:      ts,
		StartTime:      float64(ts) * 100,
		DigiEventViews: []tsdriver.DigiEventView{{StartIndex: 0, EndIndex: 2}},
		STS: []tsdriver.STSModuleResult{
			{
				Module:     3,
				FrontDigis: []digi.Digi{{Time: 1.0, Charge: 10}},
				Hits:       []sts.Hit{{X: 1.5, Y: 2.5, Time: 1.0}},
			},
		},
		Tracks: []tsdriver.Track{},
	}
}

func roundTrip(t *testing.T, compressed bool) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.tsar")
	runID := uuid.New()

	w, err := Create(path, Header{RunID: runID, CreatedUnixNano: 1234}, compressed)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := uint64(0); i < 3; i++ {
		if err := w.WriteRecord(testRecord(runID, i)); err != nil {
			t.Fatalf("WriteRecord(%d) error = %v", i, err)
		}
	}
	if w.RecordCount() != 3 {
		t.Errorf("RecordCount() = %d, want 3", w.RecordCount())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.Header().RunID != runID {
		t.Errorf("Header().RunID = %v, want %v", r.Header().RunID, runID)
	}

	var got []*tsdriver.RecoResults
	for {
		res, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadRecord() error = %v", err)
		}
		got = append(got, res)
	}

	if len(got) != 3 {
		t.Fatalf("read %d records, want 3", len(got))
	}
	for i, res := range got {
		if res.Timeslice != uint64(i) {
			t.Errorf("record %d: Timeslice = %d, want %d", i, res.Timeslice, i)
		}
		if len(res.STS) != 1 || res.STS[0].Module != 3 {
			t.Errorf("record %d: STS = %+v, want module 3", i, res.STS)
		}
	}
}

func TestWriterReaderRoundTripUncompressed(t *testing.T) {
	roundTrip(t, false)
}

func TestWriterReaderRoundTripCompressed(t *testing.T) {
	roundTrip(t, true)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-archive")
	if err := os.WriteFile(path, []byte("not a tsreco archive at all"), 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("Open() on a non-archive file: want error, got nil")
	}
}
