package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/menuboard/api/internal/auth"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/enum"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (database.Tenant, error)
}

// AuthHandler issues tenant-scoped terminal credentials.
type AuthHandler struct {
	store          AuthStore
	jwtSecret      string
	defaultStation string
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret, defaultStation string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		store:          store,
		jwtSecret:      jwtSecret,
		defaultStation: defaultStation,
		log:            log.WithField("component", "auth_handler"),
	}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/terminal", h.TerminalLogin)
}

// --- Request / Response types ---

type terminalLoginRequest struct {
	TenantID string `json:"tenant_id"`
	Secret   string `json:"secret"`
	Terminal string `json:"terminal"`
	Role     string `json:"role"`
	Station  string `json:"station"`
}

type terminalTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Terminal    string    `json:"terminal"`
	Role        string    `json:"role"`
	Station     string    `json:"station,omitempty"`
}

// --- Handlers ---

// TerminalLogin exchanges the tenant's terminal secret for a JWT bound to
// that tenant and to the terminal's role.
func (h *AuthHandler) TerminalLogin(w http.ResponseWriter, r *http.Request) {
	var req terminalLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	req.Terminal = strings.TrimSpace(req.Terminal)
	if req.TenantID == "" || req.Secret == "" || req.Terminal == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "tenant_id, secret and terminal are required")
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid tenant_id")
		return
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = enum.RolePOS
	case enum.RolePOS, enum.RoleStation:
	default:
		writeError(w, http.StatusBadRequest, codeValidation, "role must be POS or STATION")
		return
	}

	station := strings.TrimSpace(req.Station)
	if role == enum.RoleStation && station == "" {
		station = h.defaultStation
	}
	if role != enum.RoleStation {
		station = ""
	}

	tenant, err := h.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
			return
		}
		h.log.WithError(err).Error("get tenant")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}
	if !tenant.IsActive {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.TerminalSecretHash), []byte(req.Secret)); err != nil {
		h.log.WithFields(logrus.Fields{"tenant_id": tenantID, "terminal": req.Terminal}).Warn("terminal login rejected")
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, tenant.ID, req.Terminal, role, station)
	if err != nil {
		h.log.WithError(err).Error("generate token")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}

	h.log.WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"terminal":  req.Terminal,
		"role":      role,
		"station":   station,
	}).Info("terminal logged in")

	writeJSON(w, http.StatusOK, terminalTokenResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(auth.TokenTTL).UTC(),
		TenantID:    tenant.ID,
		Terminal:    req.Terminal,
		Role:        role,
		Station:     station,
	})
}
