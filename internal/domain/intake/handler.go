package intake

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
	api.POST("/requests", h.Submit, auth.RequireRole(auth.RolePatient, auth.RolePsychologist))
	api.GET("/requests", h.List, auth.RequireRole(auth.RolePatient, auth.RolePsychologist))

	psy := api.Group("", auth.RequireRole(auth.RolePsychologist))
	psy.GET("/requests/pending", h.ListPending)
	psy.POST("/requests/:id/accept", h.Accept)
	psy.POST("/requests/:id/reject", h.Reject)
}

func (h *Handler) Submit(c echo.Context) error {
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sess, _ := auth.SessionFromContext(c.Request().Context())
	// patients always submit for themselves
	if sess.Role == auth.RolePatient {
		id := sess.UserID
		in.PatientID = &id
	}
	r, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List returns the caller's requests: those addressed to a psychologist, or
// those a patient submitted.
func (h *Handler) List(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	var f ListFilter
	if sess.IsPsychologist() {
		f.PsychologistID = sess.UserID
	} else {
		f.PatientID = sess.UserID
	}
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = st
	}

	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) ListPending(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	items, err := h.svc.ListPending(c.Request().Context(), sess.UserID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Accept(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := h.svc.Accept(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Note string `json:"note"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.Reject(c.Request().Context(), id, body.Note)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}
