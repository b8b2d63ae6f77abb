package reporting

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
	g := api.Group("", auth.RequireRole(auth.RolePsychologist))
	g.GET("/reports", h.Get)
	g.POST("/risk-alerts", h.RecordAlert)
}

func (h *Handler) Get(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	r, err := h.svc.Load(c.Request().Context(), sess.UserID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) RecordAlert(c echo.Context) error {
	var in NewAlert
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, _ := auth.SessionFromContext(c.Request().Context())
	a, err := h.svc.RecordAlert(c.Request().Context(), sess.UserID, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}
