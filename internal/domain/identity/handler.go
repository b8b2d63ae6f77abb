package identity

import (
	"net/http"
	"strconv"

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

// RegisterRoutes mounts the auth endpoints on public and the directory on the
// authenticated api group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	api.GET("/me", h.Me)
	api.GET("/psychologists", h.ListPsychologists)
	api.GET("/psychologists/:id", h.GetPsychologist)
}

func (h *Handler) Register(c echo.Context) error {
	var in Registration
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c echo.Context) error {
	var in Credentials
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c echo.Context) error {
	sess, _ := auth.SessionFromContext(c.Request().Context())
	u, err := h.svc.GetUser(c.Request().Context(), sess.UserID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListPsychologists(c echo.Context) error {
	items, err := h.svc.ListPsychologists(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPsychologist(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPsychologist(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
