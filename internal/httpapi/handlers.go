package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/mmynk/slicetally/internal/apperr"
	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/models"
)

type createGroupRequest struct {
	Name          string `json:"name"`
	ParticipantID string `json:"participantId"`
	FoodType      string `json:"foodType"`
}

type createGroupResponse struct {
	Code string `json:"code"`
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	g, err := s.store.CreateGroup(groupstore.CreateInput{
		Name:          req.Name,
		ParticipantID: req.ParticipantID,
		FoodType:      req.FoodType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createGroupResponse{Code: g.Code})
}

type joinGroupRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	ParticipantID string `json:"participantId"`
}

type joinGroupResponse struct {
	groupView
	ParticipantID string                 `json:"participantId"`
	Participant   models.ParticipantView `json:"participant"`
}

func (s *Server) joinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, apperr.InvalidInput("code is required"))
		return
	}

	res, err := s.store.JoinGroup(req.Code, req.Name, req.ParticipantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinGroupResponse{
		groupView:     newGroupView(res.Projection),
		ParticipantID: res.Participant.ID,
		Participant:   viewOf(res.Participant),
	})
}

type updateSlicesRequest struct {
	Code          string          `json:"code"`
	ParticipantID string          `json:"participantId"`
	Delta         json.RawMessage `json:"delta"`
}

type updateSlicesResponse struct {
	OK          bool                   `json:"ok"`
	Participant models.ParticipantView `json:"participant"`
}

func (s *Server) updateSlices(w http.ResponseWriter, r *http.Request) {
	var req updateSlicesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, apperr.InvalidInput("code is required"))
		return
	}
	delta, err := parseDelta(req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := s.store.AdjustSlices(req.Code, req.ParticipantID, delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateSlicesResponse{OK: true, Participant: viewOf(p)})
}

// parseDelta accepts a JSON number holding a non-zero integer, including
// integral forms such as 2.0 or 1e2.
func parseDelta(raw json.RawMessage) (int64, error) {
	invalid := apperr.InvalidInput("delta must be a non-zero integer")

	var num json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &num) != nil || num == "" {
		return 0, invalid
	}
	// json.Number also accepts numeric strings; only bare numbers are allowed.
	if raw[0] == '"' {
		return 0, invalid
	}

	if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		if n == 0 {
			return 0, invalid
		}
		return n, nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f == 0 || math.Abs(f) >= math.MaxInt64 {
		return 0, invalid
	}
	return int64(f), nil
}

type renameParticipantRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

type renameParticipantResponse struct {
	Participant models.ParticipantView `json:"participant"`
}

func (s *Server) renameParticipant(w http.ResponseWriter, r *http.Request) {
	var req renameParticipantRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := s.store.RenameParticipant(req.Code, req.ParticipantID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renameParticipantResponse{Participant: viewOf(p)})
}

type leaveGroupRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) leaveGroup(w http.ResponseWriter, r *http.Request) {
	var req leaveGroupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.store.RemoveParticipant(req.Code, req.ParticipantID)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) groupInfo(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if strings.TrimSpace(code) == "" {
		writeError(w, apperr.InvalidInput("code is required"))
		return
	}

	p, err := s.store.Projection(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGroupView(p))
}

type healthResponse struct {
	Status      string `json:"status"`
	Groups      int    `json:"groups"`
	Subscribers int    `json:"subscribers"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Groups:      s.store.GroupCount(),
		Subscribers: s.bc.Subscribers(),
	})
}

func viewOf(p models.Participant) models.ParticipantView {
	return models.ParticipantView{ID: p.ID, Name: p.Name, Slices: p.Slices}
}
