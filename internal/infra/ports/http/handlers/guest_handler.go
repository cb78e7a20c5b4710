package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/nanalive/randomchat/internal/application/config"
	"github.com/nanalive/randomchat/internal/application/constant"
	"github.com/nanalive/randomchat/internal/domain/models"
)

// GuestHandler is the identity provider: it mints a fresh participant id
// per visitor and wraps it in a short-lived token so the follow-up
// websocket dial keeps the same identity. No accounts are involved.
type GuestHandler struct {
	secret []byte
	ttl    time.Duration
}

func NewGuestHandler(cfg *config.Config) *GuestHandler {
	return &GuestHandler{
		secret: []byte(cfg.TokenSecret),
		ttl:    cfg.TokenTTL,
	}
}

func (h *GuestHandler) Issue(c echo.Context) error {
	p := models.NewParticipant()

	claims := &jwt.RegisteredClaims{
		Subject:   p.ID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		slog.Error("sign guest token", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create token"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"id":    p.ID.String(),
		"token": token,
	})
}
