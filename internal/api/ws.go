package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sigitp-git/core-network-devops-agent/internal/security"
)

// WSRequest is a frame sent by the client.
type WSRequest struct {
	Type      string `json:"type"` // "chat", "ping"
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WSResponse is a frame sent back to the client.
type WSResponse struct {
	Type        string   `json:"type"` // "response", "pong", "error"
	RequestID   string   `json:"request_id,omitempty"`
	Content     string   `json:"content,omitempty"`
	ToolsUsed   []string `json:"tools_used,omitempty"`
	Model       string   `json:"model,omitempty"`
	Error       string   `json:"error,omitempty"`
	ElapsedSecs float64  `json:"elapsed_seconds,omitempty"`
}

// chatTurnTimeout bounds one model round trip including tool calls.
const chatTurnTimeout = 2 * time.Minute

// handleChatWS upgrades to a WebSocket and runs a chat session. When
// authentication is on the token arrives as a ?token= query parameter,
// since browsers cannot set headers on WebSocket dials.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.jwtSecret != nil {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			s.respondError(w, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := security.ValidateToken(tokenStr, s.jwtSecret)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if !security.Allowed(claims.Role, security.RoleOperator) {
			s.respondError(w, http.StatusForbidden, "insufficient role")
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	s.logger.Info("ws chat connected", "remote", r.RemoteAddr)

	for {
		var req WSRequest
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			// Client disconnected or context cancelled.
			s.logger.Debug("ws read ended", "error", err)
			return
		}

		switch req.Type {
		case "ping":
			s.wsSend(r.Context(), conn, WSResponse{Type: "pong", RequestID: req.RequestID})

		case "chat":
			s.wsChat(r.Context(), conn, &req)

		default:
			s.wsSend(r.Context(), conn, WSResponse{
				Type:      "error",
				RequestID: req.RequestID,
				Error:     "unknown message type: " + req.Type,
			})
		}
	}
}

// wsChat processes one chat turn and sends the full response back.
func (s *Server) wsChat(ctx context.Context, conn *websocket.Conn, req *WSRequest) {
	if req.Message == "" {
		s.wsSend(ctx, conn, WSResponse{
			Type:      "error",
			RequestID: req.RequestID,
			Error:     "message is required",
		})
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, chatTurnTimeout)
	defer cancel()

	resp, err := s.agent.Process(turnCtx, req.Message)
	if err != nil {
		s.wsSend(ctx, conn, WSResponse{
			Type:      "error",
			RequestID: req.RequestID,
			Error:     err.Error(),
		})
		return
	}

	s.wsSend(ctx, conn, WSResponse{
		Type:        "response",
		RequestID:   req.RequestID,
		Content:     resp.Message,
		ToolsUsed:   resp.ToolsUsed,
		Model:       resp.Model,
		ElapsedSecs: resp.Elapsed,
	})
}

func (s *Server) wsSend(ctx context.Context, conn *websocket.Conn, resp WSResponse) {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, resp); err != nil {
		s.logger.Debug("ws write failed", "error", err)
	}
}
