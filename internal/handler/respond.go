package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/menuboard/api/internal/auth"
	"github.com/menuboard/api/internal/service"
	"github.com/sirupsen/logrus"
)

// Error codes returned next to the message so terminals can branch without
// parsing text.
const (
	codeValidation   = "validation"
	codeNotFound     = "not_found"
	codeConflict     = "conflicting_active_order"
	codeTransition   = "invalid_transition"
	codeSettlement   = "settlement_failure"
	codeInternal     = "internal"
	codeUnauthorized = "unauthorized"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeServiceError maps engine errors onto HTTP. Anything unrecognised is
// logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrSettlementFailure):
		log.WithError(err).WithField("op", op).Error("settlement failed")
		writeError(w, http.StatusInternalServerError, codeSettlement, "settlement failed, payment not recorded")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, detail(err, service.ErrValidation))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, detail(err, service.ErrNotFound))
	case errors.Is(err, service.ErrConflictingActiveOrder):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeTransition, err.Error())
	default:
		log.WithError(err).WithField("op", op).Error("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

// detail strips the kind prefix: "validation failed: items are required"
// becomes "items are required".
func detail(err, kind error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
		return rest
	}
	return msg
}

func actorFrom(claims *auth.Claims) service.Actor {
	return service.Actor{
		TenantID: claims.TenantID,
		Terminal: claims.Terminal,
		Role:     claims.Role,
	}
}
