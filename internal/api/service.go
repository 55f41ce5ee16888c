package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "anomalytimeline.v1.Timeline"

// TimelineServer is implemented by the timeline service facade.
type TimelineServer interface {
	GetTimeline(context.Context, *GetTimelineRequest) (*Timeline, error)
	OpenView(context.Context, *OpenViewRequest) (*View, error)
	GetView(context.Context, *ViewRequest) (*View, error)
	SelectDate(context.Context, *SelectDateRequest) (*View, error)
	ClearDate(context.Context, *ViewRequest) (*View, error)
	SelectAnomaly(context.Context, *SelectAnomalyRequest) (*View, error)
	CloseAnomaly(context.Context, *ViewRequest) (*View, error)
	CloseView(context.Context, *ViewRequest) (*CloseViewResponse, error)
}

// TimelineServiceDesc describes the Timeline service for grpc.Server.RegisterService.
var TimelineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TimelineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTimeline", Handler: unaryHandler("GetTimeline", TimelineServer.GetTimeline)},
		{MethodName: "OpenView", Handler: unaryHandler("OpenView", TimelineServer.OpenView)},
		{MethodName: "GetView", Handler: unaryHandler("GetView", TimelineServer.GetView)},
		{MethodName: "SelectDate", Handler: unaryHandler("SelectDate", TimelineServer.SelectDate)},
		{MethodName: "ClearDate", Handler: unaryHandler("ClearDate", TimelineServer.ClearDate)},
		{MethodName: "SelectAnomaly", Handler: unaryHandler("SelectAnomaly", TimelineServer.SelectAnomaly)},
		{MethodName: "CloseAnomaly", Handler: unaryHandler("CloseAnomaly", TimelineServer.CloseAnomaly)},
		{MethodName: "CloseView", Handler: unaryHandler("CloseView", TimelineServer.CloseView)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "anomalytimeline/v1/timeline.proto",
}

// RegisterTimelineServer attaches srv to a gRPC server.
func RegisterTimelineServer(s grpc.ServiceRegistrar, srv TimelineServer) {
	s.RegisterService(&TimelineServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(TimelineServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		impl := srv.(TimelineServer)
		if interceptor == nil {
			return call(impl, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(impl, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TimelineClient calls the Timeline service over a gRPC connection using the JSON codec.
type TimelineClient struct {
	cc grpc.ClientConnInterface
}

// NewTimelineClient wraps cc.
func NewTimelineClient(cc grpc.ClientConnInterface) *TimelineClient {
	return &TimelineClient{cc: cc}
}

func (c *TimelineClient) GetTimeline(ctx context.Context, in *GetTimelineRequest, opts ...grpc.CallOption) (*Timeline, error) {
	out := new(Timeline)
	if err := c.invoke(ctx, "GetTimeline", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TimelineClient) OpenView(ctx context.Context, in *OpenViewRequest, opts ...grpc.CallOption) (*View, error) {
	return c.view(ctx, "OpenView", in, opts)
}

func (c *TimelineClient) GetView(ctx context.Context, in *ViewRequest, opts ...grpc.CallOption) (*View, error) {
	return c.view(ctx, "GetView", in, opts)
}

func (c *TimelineClient) SelectDate(ctx context.Context, in *SelectDateRequest, opts ...grpc.CallOption) (*View, error) {
	return c.view(ctx, "SelectDate", in, opts)
}

func (c *TimelineClient) ClearDate(ctx context.Context, in *ViewRequest, opts ...grpc.CallOption) (*View, error) {
	return c.view(ctx, "ClearDate", in, opts)
}

func (c *TimelineClient) SelectAnomaly(ctx context.Context, in *SelectAnomalyRequest, opts ...grpc.CallOption) (*View, error) {
	return c.view(ctx, "SelectAnomaly", in, opts)
}

func (c *TimelineClient) CloseAnomaly(ctx context.Context, in *ViewRequest, opts ...grpc.CallOption) (*View, error) {
	return c.view(ctx, "CloseAnomaly", in, opts)
}

func (c *TimelineClient) CloseView(ctx context.Context, in *ViewRequest, opts ...grpc.CallOption) (*CloseViewResponse, error) {
	out := new(CloseViewResponse)
	if err := c.invoke(ctx, "CloseView", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TimelineClient) view(ctx context.Context, method string, in any, opts []grpc.CallOption) (*View, error) {
	out := new(View)
	if err := c.invoke(ctx, method, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TimelineClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, callOpts...)
}
