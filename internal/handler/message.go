package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/service"
)

// MessageHandler serves messages between users about a pet.
type MessageHandler struct {
	messages *service.MessageService
	logger   *slog.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

type sendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	PetID      string `json:"petId"`
	Content    string `json:"content"`
}

// HandleSend stores a message and notifies the receiver.
//
// HTTP: POST /api/messages
// Body: {"senderId", "receiverId", "petId", "content"}
// Response: 201 {"message", "data"}
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := checkCaller(r, req.SenderID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	msg, err := h.messages.Send(r.Context(), service.SendInput{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		PetID:      req.PetID,
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Message sent successfully",
		"data":    msg,
	})
}

// HandleForUser returns every message a user sent or received, newest
// first, with sender, receiver and pet resolved.
//
// HTTP: GET /api/messages/{userId}
func (h *MessageHandler) HandleForUser(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.ForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.MessageView{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleConversations returns the user's messages grouped by pet and
// counterpart.
//
// HTTP: GET /api/messages/{userId}/conversations
func (h *MessageHandler) HandleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.messages.Conversations(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}
