package wire

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cbm-fles/tsreco/internal/logging"
	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// Config holds the sender's listen configuration, mirroring
// visualiser.Config's shape (ListenAddr plus a client-count cap).
type Config struct {
	ListenAddr string
	Compress   bool
	MaxClients int
}

// subscriber is one connected client's outgoing message queue, the wire
// equivalent of visualiser.clientStream.
type subscriber struct {
	id     string
	sendCh chan envelope
	doneCh chan struct{}
}

// Sender publishes ConfigMessage once-per-subscriber followed by a data
// message per Publish call, broadcasting to every connected client the
// same way Publisher.broadcastLoop fans a frame out to every clientStream.
type Sender struct {
	cfg Config

	server   *grpc.Server
	listener net.Listener

	mu          sync.RWMutex
	config      ConfigMessage
	subscribers map[string]*subscriber
	nextID      atomic.Uint64

	log *logging.Logger
}

// NewSender constructs a Sender; call Serve to start accepting subscribers.
func NewSender(cfg Config, log *logging.Logger) *Sender {
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 16
	}
	return &Sender{cfg: cfg, subscribers: make(map[string]*subscriber), log: log}
}

// SetConfig records the registry every future subscriber receives as its
// first message. Call before Serve, or any time before the topology of
// registered histograms/canvases changes.
func (s *Sender) SetConfig(cm ConfigMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cm
}

// Listen binds the configured address and registers the service, without
// blocking. Serve must be called afterwards to start accepting streams.
// Split out so callers (and tests) can read back Addr before Serve blocks.
func (s *Sender) Listen() error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("wire: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = lis
	s.server = grpc.NewServer()
	s.server.RegisterService(&serviceDesc, s)
	return nil
}

// Addr returns the bound listen address. Valid only after Listen returns.
func (s *Sender) Addr() string { return s.listener.Addr().String() }

// Serve blocks accepting and serving subscriber streams until Stop is
// called. Listen must have been called first.
func (s *Sender) Serve() error {
	s.log.Info("telemetry sender listening on %s", s.listener.Addr())
	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("wire: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, closing every subscriber stream.
func (s *Sender) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// subscribe implements wireServer: it registers stream as a new
// subscriber, sends the config message once, then blocks relaying data
// messages until the client disconnects.
func (s *Sender) subscribe(_ *wrapperspb.BytesValue, stream grpc.ServerStream) error {
	id := fmt.Sprintf("sub-%d", s.nextID.Add(1))
	sub := &subscriber{id: id, sendCh: make(chan envelope, 8), doneCh: make(chan struct{})}

	s.mu.Lock()
	if len(s.subscribers) >= s.cfg.MaxClients {
		s.mu.Unlock()
		return fmt.Errorf("wire: max subscribers (%d) reached", s.cfg.MaxClients)
	}
	cfg := s.config
	s.subscribers[id] = sub
	s.mu.Unlock()
	s.log.Debug("telemetry subscriber %s connected", id)

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
		close(sub.doneCh)
		s.log.Debug("telemetry subscriber %s disconnected", id)
	}()

	if err := s.sendEnvelope(stream, envelope{Kind: KindConfig, Config: cfg}); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-sub.sendCh:
			if err := s.sendEnvelope(stream, e); err != nil {
				return err
			}
		}
	}
}

func (s *Sender) sendEnvelope(stream grpc.ServerStream, e envelope) error {
	raw, err := encodeEnvelope(e, s.cfg.Compress)
	if err != nil {
		return err
	}
	return stream.SendMsg(wrapperspb.Bytes(raw))
}

// Publish broadcasts a container to every connected subscriber. A
// subscriber whose queue is full is dropped for this message, the same
// backpressure policy Publisher.broadcastLoop applies per client.
func (s *Sender) Publish(c *histo.Container) {
	e := envelope{Kind: KindData, Data: c.Snapshot()}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub.sendCh <- e:
		default:
			s.log.Warning("telemetry subscriber %s queue full, dropping timeslice %d", sub.id, c.TimesliceID)
		}
	}
}

// SubscriberCount reports the number of currently connected clients.
func (s *Sender) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
