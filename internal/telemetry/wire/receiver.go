package wire

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cbm-fles/tsreco/internal/telemetry/histo"
)

// Receiver is a subscriber to one Sender. It dials once and exposes the
// decoded message stream as two channels, the config registry arriving
// exactly once ahead of any data message.
type Receiver struct {
	conn *grpc.ClientConn
}

// Dial connects to a Sender at addr. Callers must call Close when done.
func Dial(ctx context.Context, addr string) (*Receiver, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	return &Receiver{conn: conn}, nil
}

// Close tears down the underlying connection.
func (r *Receiver) Close() error { return r.conn.Close() }

// Subscribe opens the Subscribe stream and returns a channel of decoded
// containers plus a channel that receives the config message exactly
// once. Both channels close when ctx is cancelled or the stream ends;
// errCh receives at most one error before closing.
func (r *Receiver) Subscribe(ctx context.Context) (data <-chan *histo.Container, config <-chan ConfigMessage, errCh <-chan error) {
	dataCh := make(chan *histo.Container)
	configCh := make(chan ConfigMessage, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(dataCh)
		defer close(configCh)
		defer close(errs)

		stream, err := r.conn.NewStream(ctx, &serviceDesc.Streams[0], subscribeMethodPath)
		if err != nil {
			errs <- fmt.Errorf("wire: open stream: %w", err)
			return
		}
		if err := stream.SendMsg(wrapperspb.Bytes(nil)); err != nil {
			errs <- fmt.Errorf("wire: send subscribe request: %w", err)
			return
		}
		if err := stream.CloseSend(); err != nil {
			errs <- fmt.Errorf("wire: close send: %w", err)
			return
		}

		for {
			msg := new(wrapperspb.BytesValue)
			if err := stream.RecvMsg(msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				errs <- fmt.Errorf("wire: recv: %w", err)
				return
			}
			e, err := decodeEnvelope(msg.GetValue())
			if err != nil {
				errs <- err
				return
			}
			switch e.Kind {
			case KindConfig:
				configCh <- e.Config
			case KindData:
				select {
				case dataCh <- histo.ContainerFromSnapshot(e.Data):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return dataCh, configCh, errs
}
