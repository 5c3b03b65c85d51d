package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

type ChannelHandler struct {
	channels store.ChannelStore
	now      func() time.Time
}

func NewChannelHandler(channels store.ChannelStore) *ChannelHandler {
	return &ChannelHandler{channels: channels, now: time.Now}
}

type channelRequest struct {
	Type     string               `json:"type"`
	Name     string               `json:"name"`
	Config   domain.ChannelConfig `json:"config"`
	IsActive *bool                `json:"is_active,omitempty"`
}

func validChannelType(t string) bool {
	switch domain.ChannelType(t) {
	case domain.ChannelDiscord, domain.ChannelEmail, domain.ChannelWebhook:
		return true
	}
	return false
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.channels.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}
	if req.Name == "" || !validChannelType(req.Type) {
		respondBadRequest(w, "name and a valid type are required")
		return
	}

	now := h.now()
	ch := &domain.NotificationChannel{
		Type:      domain.ChannelType(req.Type),
		Name:      req.Name,
		Config:    req.Config,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.channels.Create(r.Context(), ch); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ch)
}

func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}

	list, err := h.channels.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	var ch *domain.NotificationChannel
	for i := range list {
		if list[i].ID == id {
			ch = &list[i]
			break
		}
	}
	if ch == nil {
		respondError(w, domain.ErrNotFound)
		return
	}

	if req.Name != "" {
		ch.Name = req.Name
	}
	if req.Type != "" {
		if !validChannelType(req.Type) {
			respondBadRequest(w, "invalid type")
			return
		}
		ch.Type = domain.ChannelType(req.Type)
	}
	ch.Config = req.Config
	if req.IsActive != nil {
		ch.IsActive = *req.IsActive
	}
	ch.UpdatedAt = h.now()

	if err := h.channels.Update(r.Context(), ch); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.channels.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
