package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/repository"
)

const authCookie = "auth_token"

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
	GuestHandler(w http.ResponseWriter, r *http.Request)
	StatsHandler(w http.ResponseWriter, r *http.Request)
	MatchHandler(w http.ResponseWriter, r *http.Request)
}

type authService interface {
	NewGuest() (playerID, token string, err error)
}

type matchReader interface {
	GetStats(ctx context.Context, playerID string) (*repository.PlayerStats, error)
	GetByRoomID(ctx context.Context, roomID string) (*entity.MatchResult, error)
}

type handlers struct {
	logger  *slog.Logger
	auth    authService
	matches matchReader
}

func NewHandlers(logger *slog.Logger, auth authService, matches matchReader) Handlers {
	return &handlers{
		logger:  logger.With("component", "rest"),
		auth:    auth,
		matches: matches,
	}
}

type guestResponse struct {
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

// GuestHandler issues an anonymous identity and also stores its token in a cookie for /ws.
func (that *handlers) GuestHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GuestHandler")

	playerID, token, err := that.auth.NewGuest()
	if err != nil {
		log.Error("failed to issue guest token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusCreated, guestResponse{PlayerID: playerID, Token: token})
}

func (that *handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "StatsHandler")

	playerID := chi.URLParam(r, "playerID")

	stats, err := that.matches.GetStats(r.Context(), playerID)
	if err != nil {
		log.Error("failed to get stats", "player_id", playerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// MatchHandler returns a recorded match result. Rooms still in play are not found here.
func (that *handlers) MatchHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "MatchHandler")

	roomID := chi.URLParam(r, "roomID")

	result, err := that.matches.GetByRoomID(r.Context(), roomID)
	if errors.Is(err, repository.ErrMatchNotFound) {
		writeError(w, http.StatusNotFound, "match_not_found")
		return
	}

	if err != nil {
		log.Error("failed to get match", "room_id", roomID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}
