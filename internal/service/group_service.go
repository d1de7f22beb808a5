package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/slicetally/internal/broadcast"
	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/models"
	"github.com/mmynk/slicetally/pkg/api"
	"github.com/mmynk/slicetally/pkg/api/apiconnect"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store       *groupstore.Store
	broadcaster *broadcast.Broadcaster
}

// NewGroupService creates a new GroupService over the given store and broadcaster.
func NewGroupService(store *groupstore.Store, broadcaster *broadcast.Broadcaster) *GroupService {
	return &GroupService{store: store, broadcaster: broadcaster}
}

// CreateGroup creates a new group, optionally seeding the creator.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	group, err := s.store.CreateGroup(groupstore.CreateInput{
		Name:          req.Msg.Name,
		ParticipantID: req.Msg.ParticipantID,
		FoodType:      req.Msg.FoodType,
	})
	if err != nil {
		slog.Warn("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "code", group.Code, "food_type", group.FoodType)

	return connect.NewResponse(&api.CreateGroupResponse{Code: group.Code}), nil
}

// JoinGroup adds the caller to a group or resolves them to their existing seat.
func (s *GroupService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	res, err := s.store.JoinGroup(req.Msg.Code, req.Msg.Name, req.Msg.ParticipantID)
	if err != nil {
		slog.Warn("JoinGroup failed", "code", req.Msg.Code, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Participant joined",
		"code", res.Projection.Code,
		"participant_id", res.Participant.ID,
	)

	return connect.NewResponse(&api.JoinGroupResponse{
		Code:          res.Projection.Code,
		ParticipantID: res.Participant.ID,
		Participant:   toAPIParticipant(res.Participant),
		Participants:  toAPIParticipants(res.Projection.Participants),
		Meta:          toAPIMeta(res.Projection.Meta),
	}), nil
}

// AdjustSlices changes a participant's counter by delta.
func (s *GroupService) AdjustSlices(ctx context.Context, req *connect.Request[api.AdjustSlicesRequest]) (*connect.Response[api.AdjustSlicesResponse], error) {
	p, err := s.store.AdjustSlices(req.Msg.Code, req.Msg.ParticipantID, req.Msg.Delta)
	if err != nil {
		slog.Warn("AdjustSlices failed",
			"code", req.Msg.Code,
			"participant_id", req.Msg.ParticipantID,
			"error", err,
		)
		return nil, toConnectError(err)
	}

	slog.Debug("Slices adjusted",
		"code", req.Msg.Code,
		"participant_id", p.ID,
		"delta", req.Msg.Delta,
		"slices", p.Slices,
	)

	return connect.NewResponse(&api.AdjustSlicesResponse{OK: true, Participant: toAPIParticipant(p)}), nil
}

// RenameParticipant changes a participant's display name.
func (s *GroupService) RenameParticipant(ctx context.Context, req *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.RenameParticipantResponse], error) {
	p, err := s.store.RenameParticipant(req.Msg.Code, req.Msg.ParticipantID, req.Msg.Name)
	if err != nil {
		slog.Warn("RenameParticipant failed", "code", req.Msg.Code, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Participant renamed", "code", req.Msg.Code, "participant_id", p.ID)

	return connect.NewResponse(&api.RenameParticipantResponse{Participant: toAPIParticipant(p)}), nil
}

// LeaveGroup removes a participant. Leaving twice, or leaving an unknown
// group, still succeeds.
func (s *GroupService) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error) {
	if s.store.RemoveParticipant(req.Msg.Code, req.Msg.ParticipantID) {
		slog.Info("Participant left", "code", req.Msg.Code, "participant_id", req.Msg.ParticipantID)
	}
	return connect.NewResponse(&api.LeaveGroupResponse{OK: true}), nil
}

// GetGroup returns the current ranked state of a group.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	p, err := s.store.Projection(req.Msg.Code)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: ToSnapshot(p)}), nil
}

// Subscribe streams the group's state: first the current snapshot, then one
// snapshot per accepted change, until the client goes away.
func (s *GroupService) Subscribe(ctx context.Context, req *connect.Request[api.SubscribeRequest], stream *connect.ServerStream[api.GroupSnapshot]) error {
	if _, err := s.store.EnsureParticipant(req.Msg.Code, req.Msg.ParticipantID, req.Msg.Name); err != nil {
		return toConnectError(err)
	}

	sub, err := s.broadcaster.Subscribe(req.Msg.Code, streamSink{stream: stream})
	if err != nil {
		return toConnectError(err)
	}

	slog.Info("Subscriber connected",
		"code", sub.Code(),
		"participant_id", req.Msg.ParticipantID,
		"transport", "connect",
	)

	err = sub.Serve(ctx)
	slog.Info("Subscriber disconnected",
		"code", sub.Code(),
		"participant_id", req.Msg.ParticipantID,
		"transport", "connect",
	)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	slog.Warn("Subscriber dropped", "code", sub.Code(), "error", err)
	return connect.NewError(connect.CodeUnavailable, err)
}

// streamSink sends projections on a Connect server stream.
// Connect exposes no per-write deadline, so ctx is only checked before the write.
type streamSink struct {
	stream *connect.ServerStream[api.GroupSnapshot]
}

func (s streamSink) Send(ctx context.Context, p models.Projection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := ToSnapshot(p)
	return s.stream.Send(&snapshot)
}
