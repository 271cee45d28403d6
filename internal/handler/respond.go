package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"masterhub/internal/model"
	"masterhub/internal/mw"
	"masterhub/internal/service"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}

// writeError maps a service error to its HTTP status. Unknown errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	case errors.Is(err, service.ErrLoginTaken):
		writeErrorMessage(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	kind := model.ErrorKind(err)
	status, ok := statusByKind[kind]
	if !ok {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, kind, "internal error")
		return
	}
	writeErrorMessage(w, status, kind, err.Error())
}

var statusByKind = map[string]int{
	"validation":         http.StatusUnprocessableEntity,
	"not_found":          http.StatusNotFound,
	"forbidden":          http.StatusForbidden,
	"self_bid":           http.StatusForbidden,
	"invalid_transition": http.StatusConflict,
	"conflict":           http.StatusConflict,
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid json")
		return false
	}
	return true
}

func actorOrUnauthorized(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := mw.ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	}
	return actor, ok
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}
