package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/olahol/melody"
)

const sessionUserKey = "user_id"

type ledgerChangedMessage struct {
	Type string `json:"type"`
	Op   string `json:"op"`
	At   string `json:"at"`
}

// WSHandler pushes a signal to every socket a user has open whenever their
// ledger changes. Clients refetch the ledger on receipt.
type WSHandler struct {
	m *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()
	m.Config.MaxMessageSize = 512
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(sessionUserKey)
		slog.Debug("ledger feed connected", "user_id", userID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get(sessionUserKey)
		slog.Debug("ledger feed disconnected", "user_id", userID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		slog.Warn("ledger feed error", "error", err)
	})

	return &WSHandler{m: m}
}

func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	keys := map[string]any{sessionUserKey: userID.String()}
	if err := h.m.HandleRequestWithKeys(w, r, keys); err != nil {
		slog.Warn("websocket upgrade failed", "user_id", userID, "error", err)
	}
}

// LedgerChanged broadcasts to the user's sockets only.
func (h *WSHandler) LedgerChanged(userID uuid.UUID, op string) {
	msg, err := json.Marshal(ledgerChangedMessage{
		Type: "ledger.updated",
		Op:   op,
		At:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	target := userID.String()
	err = h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(sessionUserKey)
		return ok && id == target
	})
	if err != nil && !errors.Is(err, melody.ErrClosed) {
		slog.Warn("ledger feed broadcast failed", "user_id", userID, "error", err)
	}
}

func (h *WSHandler) Close() error {
	return h.m.Close()
}
