// Package httpapi exposes the SMS gateway webhook and a few read-only
// dashboard endpoints.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"penzi/internal/model"
	"penzi/internal/phone"
	"penzi/internal/repository"
	"penzi/internal/sms"
)

type Server struct {
	engine   *sms.Engine
	messages *repository.MessageRepository
	users    *repository.UserRepository
}

func NewServer(engine *sms.Engine, messages *repository.MessageRepository, users *repository.UserRepository) *Server {
	return &Server{engine: engine, messages: messages, users: users}
}

// Router wires middleware and routes.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/sms", func(r chi.Router) {
		r.Post("/process-incoming", s.handleProcessIncoming)
		r.Get("/messages", s.handleMessages)
		r.Get("/conversation", s.handleConversation)
		r.Get("/stats", s.handleStats)
	})
	return r
}

type incomingRequest struct {
	FromPhone   string `json:"from_phone"`
	MessageBody string `json:"message_body"`
}

type incomingResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

func (s *Server) handleProcessIncoming(w http.ResponseWriter, r *http.Request) {
	var req incomingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FromPhone) == "" || strings.TrimSpace(req.MessageBody) == "" {
		writeError(w, http.StatusBadRequest, "from_phone and message_body are required")
		return
	}

	outcome, err := s.engine.ProcessIncoming(r.Context(), req.FromPhone, req.MessageBody)
	if err != nil {
		log.Printf("[error] process incoming: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, incomingResponse{
		Success:     true,
		Message:     outcome.Reply,
		MessageType: outcome.Type,
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	if raw := r.URL.Query().Get("phone"); raw != "" {
		canonical, err := phone.Normalize(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid phone number")
			return
		}
		messages, err := s.messages.ListByPhone(r.Context(), phone.Audit(canonical), limit)
		if err != nil {
			log.Printf("[error] list messages: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load messages")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "count": len(messages)})
		return
	}

	messages, err := s.messages.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("[error] list messages: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "count": len(messages)})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("phone")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}
	canonical, err := phone.Normalize(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	messages, err := s.messages.Conversation(r.Context(), phone.Audit(canonical))
	if err != nil {
		log.Printf("[error] load conversation: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "count": len(messages)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	incoming, err := s.messages.CountByDirection(r.Context(), model.DirectionIncoming)
	if err != nil {
		log.Printf("[error] message stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	outgoing, err := s.messages.CountByDirection(r.Context(), model.DirectionOutgoing)
	if err != nil {
		log.Printf("[error] message stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	registered, err := s.users.CountCompleted(r.Context())
	if err != nil {
		log.Printf("[error] user stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incoming_messages": incoming,
		"outgoing_messages": outgoing,
		"registered_users":  registered,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[error] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
