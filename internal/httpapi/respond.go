package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mmynk/slicetally/internal/apperr"
	"github.com/mmynk/slicetally/internal/models"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

// groupView is a projection plus the top-level foodType older page scripts read.
type groupView struct {
	models.Projection
	FoodType models.FoodType `json:"foodType"`
}

func newGroupView(p models.Projection) groupView {
	return groupView{Projection: p, FoodType: p.Meta.FoodType}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// writeError maps err onto a status code. Internal details stay in the log.
func writeError(w http.ResponseWriter, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: apperr.Message(err)})
	case apperr.CodeNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{Error: apperr.Message(err)})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeBody reads a JSON object into dst. An empty body leaves dst zeroed.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return apperr.InvalidInput("request body too large")
	default:
		return apperr.Wrap(apperr.CodeInvalidInput, "invalid JSON", err)
	}
}
