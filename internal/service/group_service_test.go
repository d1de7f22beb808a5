package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/slicetally/internal/broadcast"
	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/middleware"
	"github.com/mmynk/slicetally/internal/pubsub"
	"github.com/mmynk/slicetally/pkg/api"
	"github.com/mmynk/slicetally/pkg/api/apiconnect"
)

// setupGroupTestServer creates a test server hosting the GroupService.
func setupGroupTestServer(t *testing.T) (apiconnect.GroupServiceClient, *groupstore.Store, func()) {
	t.Helper()

	store := groupstore.New()
	bc := broadcast.New(store, pubsub.NewRegistry(pubsub.WithKeepAlive(0)))
	store.Observe(bc)

	path, handler := apiconnect.NewGroupServiceHandler(
		NewGroupService(store, bc),
		connect.WithInterceptors(middleware.NewLoggingInterceptor()),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)

	client := apiconnect.NewGroupServiceClient(
		http.DefaultClient,
		server.URL,
	)

	cleanup := func() {
		server.Close()
	}

	return client, store, cleanup
}

func createGroup(t *testing.T, client apiconnect.GroupServiceClient, req *api.CreateGroupRequest) string {
	t.Helper()
	resp, err := client.CreateGroup(context.Background(), connect.NewRequest(req))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Code
}

func TestCreateGroup(t *testing.T) {
	client, store, cleanup := setupGroupTestServer(t)
	defer cleanup()

	code := createGroup(t, client, &api.CreateGroupRequest{
		Name:          "Ana",
		ParticipantID: "p1",
		FoodType:      "hamburger",
	})

	if len(code) != 6 {
		t.Errorf("code: expected 6 characters, got '%s'", code)
	}

	g, err := store.GetGroup(code)
	if err != nil {
		t.Fatalf("group not stored: %v", err)
	}
	if g.FoodType != "hamburger" {
		t.Errorf("food type: expected 'hamburger', got '%s'", g.FoodType)
	}
	if _, ok := g.Participants["p1"]; !ok {
		t.Error("expected creator to be seeded")
	}
}

func TestCreateGroup_InvalidSeed(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	_, err := client.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		ParticipantID: "p1",
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestJoinGroup(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	code := createGroup(t, client, &api.CreateGroupRequest{})

	resp, err := client.JoinGroup(context.Background(), connect.NewRequest(&api.JoinGroupRequest{
		Code: code,
		Name: "Bia",
	}))
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	if resp.Msg.ParticipantID == "" {
		t.Error("expected generated participant ID")
	}
	if resp.Msg.Participant.Name != "Bia" {
		t.Errorf("name: expected 'Bia', got '%s'", resp.Msg.Participant.Name)
	}
	if len(resp.Msg.Participants) != 1 {
		t.Errorf("participants: expected 1, got %d", len(resp.Msg.Participants))
	}
	if resp.Msg.Meta.FoodType != "pizza" {
		t.Errorf("food type: expected 'pizza', got '%s'", resp.Msg.Meta.FoodType)
	}
}

func TestJoinGroup_NotFound(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	_, err := client.JoinGroup(context.Background(), connect.NewRequest(&api.JoinGroupRequest{
		Code: "ZZZZZZ",
		Name: "Ana",
	}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestAdjustSlices(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	code := createGroup(t, client, &api.CreateGroupRequest{Name: "Ana", ParticipantID: "p1"})

	resp, err := client.AdjustSlices(ctx, connect.NewRequest(&api.AdjustSlicesRequest{
		Code: code, ParticipantID: "p1", Delta: 3,
	}))
	if err != nil {
		t.Fatalf("AdjustSlices failed: %v", err)
	}
	if !resp.Msg.OK || resp.Msg.Participant.Slices != 3 {
		t.Errorf("expected ok with 3 slices, got %+v", resp.Msg)
	}

	resp, err = client.AdjustSlices(ctx, connect.NewRequest(&api.AdjustSlicesRequest{
		Code: code, ParticipantID: "p1", Delta: -1000,
	}))
	if err != nil {
		t.Fatalf("AdjustSlices (over-decrement) failed: %v", err)
	}
	if resp.Msg.Participant.Slices != 0 {
		t.Errorf("slices: expected 0, got %d", resp.Msg.Participant.Slices)
	}

	_, err = client.AdjustSlices(ctx, connect.NewRequest(&api.AdjustSlicesRequest{
		Code: code, ParticipantID: "p1", Delta: 0,
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("zero delta: expected InvalidArgument, got %v", err)
	}

	_, err = client.AdjustSlices(ctx, connect.NewRequest(&api.AdjustSlicesRequest{
		Code: code, ParticipantID: "ghost", Delta: 1,
	}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("unknown participant: expected NotFound, got %v", err)
	}
}

func TestRenameParticipant(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	code := createGroup(t, client, &api.CreateGroupRequest{Name: "Ana", ParticipantID: "p1"})

	resp, err := client.RenameParticipant(context.Background(), connect.NewRequest(&api.RenameParticipantRequest{
		Code: code, ParticipantID: "p1", Name: "Ana Clara",
	}))
	if err != nil {
		t.Fatalf("RenameParticipant failed: %v", err)
	}
	if resp.Msg.Participant.Name != "Ana Clara" {
		t.Errorf("name: expected 'Ana Clara', got '%s'", resp.Msg.Participant.Name)
	}
}

func TestLeaveGroup(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	code := createGroup(t, client, &api.CreateGroupRequest{Name: "Ana", ParticipantID: "p1"})

	for i := 0; i < 2; i++ {
		resp, err := client.LeaveGroup(ctx, connect.NewRequest(&api.LeaveGroupRequest{
			Code: code, ParticipantID: "p1",
		}))
		if err != nil {
			t.Fatalf("LeaveGroup %d failed: %v", i, err)
		}
		if !resp.Msg.OK {
			t.Errorf("LeaveGroup %d: expected ok", i)
		}
	}

	if _, err := client.LeaveGroup(ctx, connect.NewRequest(&api.LeaveGroupRequest{
		Code: "ZZZZZZ", ParticipantID: "p1",
	})); err != nil {
		t.Errorf("LeaveGroup on unknown group should succeed, got %v", err)
	}

	getResp, err := client.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{Code: code}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(getResp.Msg.Group.Participants) != 0 {
		t.Errorf("participants: expected 0, got %d", len(getResp.Msg.Group.Participants))
	}
}

func TestGetGroup_NotFound(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	_, err := client.GetGroup(context.Background(), connect.NewRequest(&api.GetGroupRequest{Code: "ZZZZZZ"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	code := createGroup(t, client, &api.CreateGroupRequest{Name: "Ana", ParticipantID: "p1"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, connect.NewRequest(&api.SubscribeRequest{
		Code: code, ParticipantID: "p2", Name: "Bia",
	}))
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer func() {
		cancel()
		stream.Close()
	}()

	if !stream.Receive() {
		t.Fatalf("expected initial snapshot: %v", stream.Err())
	}
	first := stream.Msg()
	if len(first.Participants) != 2 {
		t.Fatalf("initial snapshot: expected subscriber to be added, got %+v", first.Participants)
	}

	if _, err := client.AdjustSlices(ctx, connect.NewRequest(&api.AdjustSlicesRequest{
		Code: code, ParticipantID: "p2", Delta: 2,
	})); err != nil {
		t.Fatalf("AdjustSlices failed: %v", err)
	}

	if !stream.Receive() {
		t.Fatalf("expected update: %v", stream.Err())
	}
	update := stream.Msg()
	if update.Version <= first.Version {
		t.Errorf("version: expected > %d, got %d", first.Version, update.Version)
	}
	if update.Participants[0].ID != "p2" || update.Participants[0].Slices != 2 {
		t.Errorf("expected p2 leading with 2, got %+v", update.Participants[0])
	}
	if update.Meta.LeaderID != "p2" {
		t.Errorf("leader: expected 'p2', got '%s'", update.Meta.LeaderID)
	}
}

func TestSubscribe_NotFound(t *testing.T) {
	client, _, cleanup := setupGroupTestServer(t)
	defer cleanup()

	stream, err := client.Subscribe(context.Background(), connect.NewRequest(&api.SubscribeRequest{
		Code: "ZZZZZZ", ParticipantID: "p1",
	}))
	if err != nil {
		t.Fatalf("Subscribe returned early error: %v", err)
	}
	defer stream.Close()

	if stream.Receive() {
		t.Fatal("expected no messages")
	}
	if connect.CodeOf(stream.Err()) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", stream.Err())
	}
}
