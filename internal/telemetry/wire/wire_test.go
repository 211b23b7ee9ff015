package wire

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbm-fles/tsreco/internal/logging"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New(logging.LevelError, "")
	require.NoError(t, err)
	return log
}

func TestEnvelope_RoundTrip(t *testing.T) {
	h := histo.NewH1D("rate", "Rate", 4, 0, 4)
	h.Fill(0.5, 3)
	c := &histo.Container{TimesliceID: 7, H1: []*histo.H1D{h}}

	e := envelope{Kind: KindData, Data: c.Snapshot()}
	for _, compress := range []bool{false, true} {
		raw, err := encodeEnvelope(e, compress)
		require.NoError(t, err)
		got, err := decodeEnvelope(raw)
		require.NoError(t, err)
		assert.Equal(t, KindData, got.Kind)
		require.Len(t, got.Data.H1, 1)
		assert.Equal(t, "rate", got.Data.H1[0].Name)
		assert.Equal(t, 3.0, got.Data.H1[0].Values[0])
	}
}

func TestSender_ConfigThenDataReachesSubscriber(t *testing.T) {
	sender := NewSender(Config{ListenAddr: "127.0.0.1:0"}, newTestLogger(t))
	require.NoError(t, sender.Listen())
	sender.SetConfig(ConfigMessage{Histograms: []HistogramConfig{{NameWithMetadata: "rate!01", FolderPath: "sts"}}})

	go sender.Serve()
	defer sender.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recv, err := Dial(ctx, sender.Addr())
	require.NoError(t, err)
	defer recv.Close()

	dataCh, configCh, errCh := recv.Subscribe(ctx)

	select {
	case cfg := <-configCh:
		require.Len(t, cfg.Histograms, 1)
		assert.Equal(t, "rate!01", cfg.Histograms[0].NameWithMetadata)
	case err := <-errCh:
		t.Fatalf("subscribe failed before config: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config message")
	}

	// wait for the subscriber to be registered before publishing, since
	// subscribe() only starts relaying after SetConfig's send completes.
	deadline := time.Now().Add(2 * time.Second)
	for sender.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	h := histo.NewH1D("rate", "Rate", 4, 0, 4)
	h.Fill(1.5, 9)
	sender.Publish(&histo.Container{TimesliceID: 3, H1: []*histo.H1D{h}})

	select {
	case c := <-dataCh:
		require.Len(t, c.H1, 1)
		assert.Equal(t, uint64(3), c.TimesliceID)
		assert.Equal(t, 9.0, c.H1[0].BinContent(2))
	case err := <-errCh:
		t.Fatalf("subscribe failed before data: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for data message")
	}
}
