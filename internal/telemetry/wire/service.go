// Package wire implements the histogram telemetry push transport
// (spec.md §6/§8): a sender streams a config message once per subscriber
// followed by a data message per published timeslice; a receiver decodes
// the incoming containers, and merging them by name into a running
// integrated view is done by internal/telemetry/registry.
//
// The RPC itself is grounded on legacy/internal/lidar/visualiser's gRPC
// service: a grpc.Server with one server-streaming method registered via
// a ServiceDesc, a per-client broadcast channel registry (Publisher), and
// a streamFromPublisher-style send loop (Server.streamFromPublisher).
// That package depends on a protoc-generated "pb" package that isn't part
// of this module's dependency pack, so the service here is hand-declared
// with the same grpc.ServiceDesc/StreamDesc shape protoc-gen-go-grpc
// would emit, carrying google.golang.org/protobuf's pre-compiled
// wrapperspb.BytesValue as an opaque envelope around our own gob-encoded
// payload instead of a generated message type.
package wire

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// serviceName is the gRPC service name advertised in the ServiceDesc.
const serviceName = "tsreco.telemetry.Wire"

// subscribeStreamName is the one server-streaming method this service
// exposes: a client sends a single empty request and receives a
// never-ending sequence of envelopes until it cancels the stream.
const subscribeStreamName = "Subscribe"

// wireServer is the interface the hand-rolled ServiceDesc dispatches to,
// mirroring the generated xxxServer interface protoc-gen-go-grpc emits.
type wireServer interface {
	subscribe(req *wrapperspb.BytesValue, stream grpc.ServerStream) error
}

// serviceDesc is the hand-authored equivalent of a generated
// pb.Wire_ServiceDesc: one service, one server-streaming method.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*wireServer)(nil),
	Methods:     nil,
	Streams: []grpc.StreamDesc{
		{
			StreamName:    subscribeStreamName,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				req := new(wrapperspb.BytesValue)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return srv.(wireServer).subscribe(req, stream)
			},
		},
	},
	Metadata: "tsreco/telemetry/wire.proto",
}

// subscribeMethodPath is the fully-qualified method name used by clients
// to open the Subscribe stream, matching gRPC's "/service/method" path
// convention for a hand-declared ServiceDesc.
const subscribeMethodPath = "/" + serviceName + "/" + subscribeStreamName
