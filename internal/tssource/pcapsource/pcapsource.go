// Package pcapsource is a demo tsdriver.Source adapter: it reads
// timeslices framed as UDP payloads out of a pcap capture file, for
// exercising the driver without a live timeslice-building upstream.
// Not part of the reconstruction core proper (spec.md Non-goals: no
// wire-format/network-ingest protocol is specified), so its framing
// below is this package's own and not grounded in spec.md.
//
// Reading is grounded on
// legacy/internal/lidar/network/pcap_interface.go's PCAPReader
// interface/MockPCAPReader split, which lets this adapter's own tests
// run without a real capture file on disk. Unlike
// legacy/internal/lidar/network/pcap.go's cgo-bound
// "github.com/google/gopacket/pcap", the real implementation here uses
// "github.com/google/gopacket/pcapgo", a pure-Go pcap reader with no
// libpcap dependency, since a demo/reference adapter should build
// without special host packages installed.
package pcapsource

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/cbm-fles/tsreco/internal/digi"
	"github.com/cbm-fles/tsreco/internal/recoerr"
	"github.com/cbm-fles/tsreco/internal/tsdriver"
)

// PacketReader abstracts pcap packet iteration, letting tests supply
// packets without a real capture file, the same split
// network.PCAPReader draws in the teacher.
type PacketReader interface {
	// ReadPacketData returns the next packet's payload, or io.EOF once
	// the capture is exhausted.
	ReadPacketData() ([]byte, error)
	Close() error
}

// pcapgoReader adapts *pcapgo.Reader (and the *os.File it reads from)
// to PacketReader.
type pcapgoReader struct {
	f *os.File
	r *pcapgo.Reader
}

// Open opens a pcap file for reading with pcapgo's pure-Go parser.
func Open(path string) (PacketReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcapsource: open %q: %w", path, err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pcapsource: parse pcap header %q: %w", path, err)
	}
	return &pcapgoReader{f: f, r: r}, nil
}

func (p *pcapgoReader) ReadPacketData() ([]byte, error) {
	data, _, err := p.r.ReadPacketData()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *pcapgoReader) Close() error { return p.f.Close() }

// Config selects the UDP port carrying framed timeslices and the pcap
// capture to read them from.
type Config struct {
	Path    string
	UDPPort int
}

// Source reads tsdriver.Timeslice values out of a pcap capture's UDP
// payloads, implementing tsdriver.Source.
type Source struct {
	reader  PacketReader
	udpPort int
	closed  bool
}

// New opens path and returns a Source reading UDP payloads on
// cfg.UDPPort.
func New(cfg Config) (*Source, error) {
	r, err := Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &Source{reader: r, udpPort: cfg.UDPPort}, nil
}

// newWithReader builds a Source over a caller-supplied PacketReader,
// used by this package's own tests in place of a real capture file.
func newWithReader(r PacketReader, udpPort int) *Source {
	return &Source{reader: r, udpPort: udpPort}
}

// Next decodes the next timeslice-carrying UDP payload, skipping any
// packet that is not UDP on the configured port (mirroring
// network.ReadPCAPFile's own BPF-filter-then-layer-check fallback,
// since pcapgo offers no BPF filtering of its own).
func (s *Source) Next(ctx context.Context) (tsdriver.Timeslice, error) {
	if s.closed {
		return tsdriver.Timeslice{}, tsdriver.ErrSourceClosed
	}
	for {
		select {
		case <-ctx.Done():
			return tsdriver.Timeslice{}, ctx.Err()
		default:
		}

		data, err := s.reader.ReadPacketData()
		if err == io.EOF {
			return tsdriver.Timeslice{}, io.EOF
		}
		if err != nil {
			return tsdriver.Timeslice{}, fmt.Errorf("%w: pcapsource: read packet: %v", recoerr.ErrArchiveIO, err)
		}

		payload, ok := udpPayload(data, s.udpPort)
		if !ok {
			continue
		}

		ts, err := decodeTimeslice(payload)
		if err != nil {
			return tsdriver.Timeslice{}, fmt.Errorf("pcapsource: decode timeslice: %w", err)
		}
		return ts, nil
	}
}

// Close releases the underlying pcap reader.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.reader.Close()
}

// udpPayload extracts a UDP payload on port from a raw Ethernet frame,
// assuming Ethernet/IPv4/UDP framing (the only link type this demo
// adapter supports).
func udpPayload(frame []byte, port int) ([]byte, bool) {
	eth := layers.Ethernet{}
	if err := eth.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
		return nil, false
	}
	if eth.EthernetType != layers.EthernetTypeIPv4 {
		return nil, false
	}

	ip := layers.IPv4{}
	if err := ip.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
		return nil, false
	}
	if ip.Protocol != layers.IPProtocolUDP {
		return nil, false
	}

	udp := layers.UDP{}
	if err := udp.DecodeFromBytes(ip.Payload, gopacket.NilDecodeFeedback); err != nil {
		return nil, false
	}
	if int(udp.DstPort) != port {
		return nil, false
	}
	return udp.Payload, true
}

// timeslice wire layout (this package's own, demo-only framing):
//
//	uint64  timeslice index     (little-endian)
//	float64 start time (ns)     (little-endian bits)
//	uint16  subsystem count
//	repeated subsystem count times:
//	  uint8  digi.System
//	  uint32 digi count
//	  repeated digi count times:
//	    uint64  Addr
//	    uint32  Channel
//	    float64 Time    (bits)
//	    float64 Charge  (bits)
//	    uint8   Trigger
const digiRecordSize = 8 + 4 + 8 + 8 + 1

func decodeTimeslice(b []byte) (tsdriver.Timeslice, error) {
	if len(b) < 8+8+2 {
		return tsdriver.Timeslice{}, fmt.Errorf("payload too short: %d bytes", len(b))
	}
	ts := tsdriver.Timeslice{
		Index:     binary.LittleEndian.Uint64(b[0:8]),
		StartTime: math.Float64frombits(binary.LittleEndian.Uint64(b[8:16])),
		Digis:     make(map[digi.System][]digi.Digi),
	}
	off := 16
	nSys := int(binary.LittleEndian.Uint16(b[off : off+2]))
	off += 2

	for i := 0; i < nSys; i++ {
		if off+1+4 > len(b) {
			return tsdriver.Timeslice{}, fmt.Errorf("truncated subsystem header at offset %d", off)
		}
		sys := digi.System(b[off])
		off++
		n := int(binary.LittleEndian.Uint32(b[off : off+4]))
		off += 4

		digis := make([]digi.Digi, 0, n)
		for j := 0; j < n; j++ {
			if off+digiRecordSize > len(b) {
				return tsdriver.Timeslice{}, fmt.Errorf("truncated digi record at offset %d", off)
			}
			digis = append(digis, digi.Digi{
				Addr:    digi.Address(binary.LittleEndian.Uint64(b[off : off+8])),
				Channel: binary.LittleEndian.Uint32(b[off+8 : off+12]),
				Time:    math.Float64frombits(binary.LittleEndian.Uint64(b[off+12 : off+20])),
				Charge:  math.Float64frombits(binary.LittleEndian.Uint64(b[off+20 : off+28])),
				Trigger: digi.TriggerKind(b[off+28]),
			})
			off += digiRecordSize
		}
		ts.Digis[sys] = digis
	}
	return ts, nil
}
