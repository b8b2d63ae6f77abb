package scheduling

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

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
	g.GET("/appointments", h.ListAppointments)
	g.POST("/appointments", h.CreateAppointment)
	g.POST("/appointments/import", h.Import)
	g.PATCH("/appointments/:id/status", h.UpdateStatus)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	items, err := h.svc.ListAppointments(c.Request().Context(), sess.UserID)
	if err != nil {
		return apperr.HTTP(err)
	}
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		filtered := make([]Appointment, 0, len(items))
		for _, a := range items {
			if a.Status == st {
				filtered = append(filtered, a)
			}
		}
		items = filtered
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

// createRequest accepts the date as a string so date-only values are read in
// the service's zone.
type createRequest struct {
	PatientID       FlexID `json:"patient_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
	Notes           string `json:"notes"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, _ := auth.SessionFromContext(c.Request().Context())
	a, err := h.svc.CreateAppointment(c.Request().Context(), sess.UserID, NewAppointment{
		PatientID:       int64(req.PatientID),
		Date:            ParseDate(req.Date, req.Time, h.svc.Location()),
		DurationMinutes: req.DurationMinutes,
		Description:     req.Description,
		Notes:           req.Notes,
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Import(c echo.Context) error {
	var raws []RawAppointment
	if err := c.Bind(&raws); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, _ := auth.SessionFromContext(c.Request().Context())
	items, err := h.svc.Import(c.Request().Context(), sess.UserID, raws)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, items)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	st, ok := ParseStatus(body.Status)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	sess, _ := auth.SessionFromContext(c.Request().Context())
	a, err := h.svc.UpdateStatus(c.Request().Context(), sess.UserID, id, st)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}
