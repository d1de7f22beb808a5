// Package apiconnect wires the slicetally.v1.GroupService messages to
// Connect handlers and clients.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/slicetally/pkg/api"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = "slicetally.v1.GroupService"

// Procedure names, used as HTTP routes and in logs.
const (
	GroupServiceCreateGroupProcedure       = "/slicetally.v1.GroupService/CreateGroup"
	GroupServiceJoinGroupProcedure         = "/slicetally.v1.GroupService/JoinGroup"
	GroupServiceAdjustSlicesProcedure      = "/slicetally.v1.GroupService/AdjustSlices"
	GroupServiceRenameParticipantProcedure = "/slicetally.v1.GroupService/RenameParticipant"
	GroupServiceLeaveGroupProcedure        = "/slicetally.v1.GroupService/LeaveGroup"
	GroupServiceGetGroupProcedure          = "/slicetally.v1.GroupService/GetGroup"
	GroupServiceSubscribeProcedure         = "/slicetally.v1.GroupService/Subscribe"
)

// GroupServiceClient is a client for the slicetally.v1.GroupService service.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	JoinGroup(context.Context, *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error)
	AdjustSlices(context.Context, *connect.Request[api.AdjustSlicesRequest]) (*connect.Response[api.AdjustSlicesResponse], error)
	RenameParticipant(context.Context, *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.RenameParticipantResponse], error)
	LeaveGroup(context.Context, *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	Subscribe(context.Context, *connect.Request[api.SubscribeRequest]) (*connect.ServerStreamForClient[api.GroupSnapshot], error)
}

// NewGroupServiceClient constructs a client for the slicetally.v1.GroupService
// service. It always uses the JSON Codec.
//
// The URL supplied here should be the base URL for the server (for example,
// http://api.acme.com or https://acme.com/grpc).
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &groupServiceClient{
		createGroup: connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](
			httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...,
		),
		joinGroup: connect.NewClient[api.JoinGroupRequest, api.JoinGroupResponse](
			httpClient, baseURL+GroupServiceJoinGroupProcedure, opts...,
		),
		adjustSlices: connect.NewClient[api.AdjustSlicesRequest, api.AdjustSlicesResponse](
			httpClient, baseURL+GroupServiceAdjustSlicesProcedure, opts...,
		),
		renameParticipant: connect.NewClient[api.RenameParticipantRequest, api.RenameParticipantResponse](
			httpClient, baseURL+GroupServiceRenameParticipantProcedure, opts...,
		),
		leaveGroup: connect.NewClient[api.LeaveGroupRequest, api.LeaveGroupResponse](
			httpClient, baseURL+GroupServiceLeaveGroupProcedure, opts...,
		),
		getGroup: connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](
			httpClient, baseURL+GroupServiceGetGroupProcedure, opts...,
		),
		subscribe: connect.NewClient[api.SubscribeRequest, api.GroupSnapshot](
			httpClient, baseURL+GroupServiceSubscribeProcedure, opts...,
		),
	}
}

type groupServiceClient struct {
	createGroup       *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	joinGroup         *connect.Client[api.JoinGroupRequest, api.JoinGroupResponse]
	adjustSlices      *connect.Client[api.AdjustSlicesRequest, api.AdjustSlicesResponse]
	renameParticipant *connect.Client[api.RenameParticipantRequest, api.RenameParticipantResponse]
	leaveGroup        *connect.Client[api.LeaveGroupRequest, api.LeaveGroupResponse]
	getGroup          *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	subscribe         *connect.Client[api.SubscribeRequest, api.GroupSnapshot]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) AdjustSlices(ctx context.Context, req *connect.Request[api.AdjustSlicesRequest]) (*connect.Response[api.AdjustSlicesResponse], error) {
	return c.adjustSlices.CallUnary(ctx, req)
}

func (c *groupServiceClient) RenameParticipant(ctx context.Context, req *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.RenameParticipantResponse], error) {
	return c.renameParticipant.CallUnary(ctx, req)
}

func (c *groupServiceClient) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error) {
	return c.leaveGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) Subscribe(ctx context.Context, req *connect.Request[api.SubscribeRequest]) (*connect.ServerStreamForClient[api.GroupSnapshot], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// GroupServiceHandler is an implementation of the slicetally.v1.GroupService service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	JoinGroup(context.Context, *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error)
	AdjustSlices(context.Context, *connect.Request[api.AdjustSlicesRequest]) (*connect.Response[api.AdjustSlicesResponse], error)
	RenameParticipant(context.Context, *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.RenameParticipantResponse], error)
	LeaveGroup(context.Context, *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	Subscribe(context.Context, *connect.Request[api.SubscribeRequest], *connect.ServerStream[api.GroupSnapshot]) error
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	createGroup := connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...)
	joinGroup := connect.NewUnaryHandler(GroupServiceJoinGroupProcedure, svc.JoinGroup, opts...)
	adjustSlices := connect.NewUnaryHandler(GroupServiceAdjustSlicesProcedure, svc.AdjustSlices, opts...)
	renameParticipant := connect.NewUnaryHandler(GroupServiceRenameParticipantProcedure, svc.RenameParticipant, opts...)
	leaveGroup := connect.NewUnaryHandler(GroupServiceLeaveGroupProcedure, svc.LeaveGroup, opts...)
	getGroup := connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...)
	subscribe := connect.NewServerStreamHandler(GroupServiceSubscribeProcedure, svc.Subscribe, opts...)

	return "/" + GroupServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GroupServiceCreateGroupProcedure:
			createGroup.ServeHTTP(w, r)
		case GroupServiceJoinGroupProcedure:
			joinGroup.ServeHTTP(w, r)
		case GroupServiceAdjustSlicesProcedure:
			adjustSlices.ServeHTTP(w, r)
		case GroupServiceRenameParticipantProcedure:
			renameParticipant.ServeHTTP(w, r)
		case GroupServiceLeaveGroupProcedure:
			leaveGroup.ServeHTTP(w, r)
		case GroupServiceGetGroupProcedure:
			getGroup.ServeHTTP(w, r)
		case GroupServiceSubscribeProcedure:
			subscribe.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
