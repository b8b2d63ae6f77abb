package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Get, auth.RequireRole(auth.RolePsychologist))
}

func (h *Handler) Get(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	v, err := h.svc.Load(c.Request().Context(), sess.UserID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}
