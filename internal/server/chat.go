package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trackitnow-backend/internal/chatbot"
	"trackitnow-backend/internal/types"
)

const chatTimeout = 20 * time.Second

// ThrottledReply answers chat messages sent past the per-IP rate limit.
const ThrottledReply = "Too many messages, please wait a moment."

// ChatServer exposes the chatbot over HTTP.
type ChatServer struct {
	router *chi.Mux
	chat   *chatbot.Service
}

func NewChatServer(opts Options, chat *chatbot.Service) *ChatServer {
	s := &ChatServer{router: newRouter(opts), chat: chat}
	s.router.Get("/", s.handleRoot)
	s.router.With(rateLimitWith(opts.RateLimitPerMinute, handleChatThrottled)).Post("/chat", s.handleChat)
	return s
}

func (s *ChatServer) Router() http.Handler { return s.router }

func (s *ChatServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "TrackItNow chatbot online")
}

// handleChatThrottled keeps the chat contract of always answering 200 when a
// client is rate limited.
func handleChatThrottled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ChatResponse{Response: ThrottledReply})
}

// POST /chat
//
// Every well-formed request is answered with 200, including turns whose
// underlying query failed: the error text goes into the reply.
func (s *ChatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := resolveSessionID(r, req.SessionID)
	if sid != chatbot.DefaultSessionID {
		w.Header().Set(SessionHeader, sid)
		SetSessionCookie(w, sid)
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()
	reply, err := s.chat.Chat(ctx, sid, req.Message)
	if err != nil {
		reply = chatbot.FailureReply(err)
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Response: reply})
}
