// Package webchat serves the live pre-consultation chat over WebSocket. The
// same orchestrator sits behind it as the HTTP endpoint; the socket just
// keeps one patient's turn loop on a single connection.
package webchat

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/pkg/logging"
)

var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ChatService is the intake surface the socket drives.
type ChatService interface {
	HandleMessage(ctx context.Context, patientID string, req intake.Request) (intake.Result, error)
}

// HistoryLoader replays the stored conversation on connect.
type HistoryLoader interface {
	Load(ctx context.Context, patientID string) intake.History
}

// Handler manages live chat connections.
type Handler struct {
	chat    ChatService
	history HistoryLoader
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // patientID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
}

// InboundMessage is what the chat frontend sends.
type InboundMessage struct {
	Type        string         `json:"type"` // "message", "ping"
	Text        string         `json:"text"`
	Attachments []string       `json:"attachments,omitempty"`
	Form        map[string]any `json:"form,omitempty"`
}

// OutboundMessage is what we send to the frontend.
type OutboundMessage struct {
	Type         string        `json:"type"` // "reply", "typing", "history", "pong", "error"
	Text         string        `json:"text,omitempty"`
	Reply        intake.Result `json:"reply,omitempty"`
	Conversation []intake.Turn `json:"conversation,omitempty"`
}

// NewHandler creates a live chat handler.
func NewHandler(chat ChatService, history HistoryLoader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		chat:     chat,
		history:  history,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and runs the patient's turn loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	patientID := r.URL.Query().Get("patient")
	if !patientIDPattern.MatchString(patientID) {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing or invalid patient parameter"})
		return
	}

	// Replay the stored conversation so a reconnect resumes mid-intake.
	if h.history != nil {
		stored := h.history.Load(r.Context(), patientID)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Conversation: stored.Conversation})
	}

	wsc := &wsConn{conn: conn}
	h.mu.Lock()
	h.sessions[patientID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[patientID] == wsc {
			delete(h.sessions, patientID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "patient_id", patientID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "patient_id", patientID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || (strings.TrimSpace(msg.Text) == "" && len(msg.Attachments) == 0 && msg.Form == nil) {
			continue
		}

		h.processMessage(r.Context(), patientID, msg)
	}
}

func (h *Handler) processMessage(ctx context.Context, patientID string, msg InboundMessage) {
	h.sendToPatient(patientID, OutboundMessage{Type: "typing"})

	result, err := h.chat.HandleMessage(ctx, patientID, intake.Request{
		PatientMessage: msg.Text,
		Attachments:    msg.Attachments,
		Form:           msg.Form,
	})
	if err != nil {
		// Same contract as the HTTP boundary: the patient sees the fixed
		// apology, never the failure.
		result = intake.FallbackResult()
	}
	h.sendToPatient(patientID, OutboundMessage{Type: "reply", Reply: result})
}

func (h *Handler) sendToPatient(patientID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[patientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}
