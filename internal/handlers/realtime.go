package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/internal/realtime"
	"github.com/chirp-social/chirp/pkg/errors"
	"github.com/chirp-social/chirp/pkg/response"
)

// RealtimeHandler upgrades authenticated clients onto the chat hub.
type RealtimeHandler struct {
	hub      *realtime.Hub
	verifier middleware.TokenVerifier
}

func NewRealtimeHandler(hub *realtime.Hub, verifier middleware.TokenVerifier) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, verifier: verifier}
}

// GET /ws
//
// Browsers cannot set headers on WebSocket dials, so the token is accepted
// from the access_token query parameter as well as the Authorization header.
// Frames are re-authenticated individually once connected.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		token = c.Query("access_token")
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.verifier.VerifyAccess(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.hub.Serve(claims.UserID, c.Writer, c.Request)
}
