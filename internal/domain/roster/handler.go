package roster

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/auth"
	"github.com/lunysse/lunysse/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePsychologist))
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:id", h.GetPatient)
}

func (h *Handler) ListPatients(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	items, err := h.svc.ListPatients(c.Request().Context(), sess.UserID)
	if err != nil {
		return apperr.HTTP(err)
	}
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		items = lo.Filter(items, func(p Patient, _ int) bool { return p.Status == st })
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, _ := auth.SessionFromContext(c.Request().Context())
	p, err := h.svc.GetPatient(c.Request().Context(), sess.UserID, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
