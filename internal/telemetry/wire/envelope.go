package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// Kind distinguishes the two message types a sender emits: a one-time
// config message describing the registered histograms/canvases, and a
// per-timeslice data message carrying a histogram container.
type Kind uint8

const (
	KindConfig Kind = iota
	KindData
)

// HistogramConfig names one registered histogram plus the folder it is
// filed under (CanvasConfig.cxx's directory-structured registry).
type HistogramConfig struct {
	NameWithMetadata string // "name!hex-metadata", per histo.Metadata.String
	FolderPath       string
}

// CanvasEntry is one registered canvas, rendered via canvas.CanvasConfig.String.
type CanvasEntry struct {
	Name string
	DSL  string
}

// ConfigMessage is emitted once per subscriber, before any data message
// (spec.md §6: "config message, emitted only on first subscription").
type ConfigMessage struct {
	Histograms []HistogramConfig
	Canvases   []CanvasEntry
}

// envelope is the gob-encoded payload wrapped inside a
// wrapperspb.BytesValue on the wire.
type envelope struct {
	Kind       Kind
	Compressed bool
	Config     ConfigMessage
	Data       histo.ContainerSnapshot
}

func encodeEnvelope(e envelope, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	if !compress {
		return append([]byte{0}, buf.Bytes()...), nil
	}
	var out bytes.Buffer
	out.WriteByte(1) // compressed marker, read back by decodeEnvelope
	zw, err := zstd.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("wire: zstd writer: %w", err)
	}
	if _, err := zw.Write(buf.Bytes()); err != nil {
		zw.Close()
		return nil, fmt.Errorf("wire: zstd write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("wire: zstd close: %w", err)
	}
	return out.Bytes(), nil
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var e envelope
	if len(raw) == 0 {
		return e, fmt.Errorf("wire: empty envelope")
	}
	body := raw[1:]
	if raw[0] == 1 {
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return e, fmt.Errorf("wire: zstd reader: %w", err)
		}
		defer zr.Close()
		decompressed, err := io.ReadAll(zr)
		if err != nil {
			return e, fmt.Errorf("wire: zstd read: %w", err)
		}
		body = decompressed
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&e); err != nil {
		return e, fmt.Errorf("wire: decode envelope: %w", err)
	}
	return e, nil
}
