package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	models "PriceCast/internal/domain/models"
	"PriceCast/internal/presentation"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/usecase"
	xhttp "PriceCast/pkg/http"
	xlogger "PriceCast/pkg/logger"
)

// DashboardHandler serves the dashboard page, its JSON twins and the CSV download.
type DashboardHandler struct {
	logger   *xlogger.Logger
	dash     *usecase.Dashboard
	renderer *presentation.Renderer
	limiter  *ratelimit.Limiter
}

// NewDashboardHandler creates the handler. limiter may be nil to disable throttling.
func NewDashboardHandler(logger *xlogger.Logger, dash *usecase.Dashboard, renderer *presentation.Renderer, limiter *ratelimit.Limiter) *DashboardHandler {
	return &DashboardHandler{logger: logger, dash: dash, renderer: renderer, limiter: limiter}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	var throttled []echo.MiddlewareFunc
	if h.limiter != nil {
		throttled = append(throttled, h.limiter.Middleware(h.logger))
	}

	e.GET("/", h.Page, throttled...)
	e.GET("/download", h.Download)
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/forecast", h.Forecast, throttled...)
	g.GET("/prices", h.Prices)
}

// Page renders the full dashboard, or the controls plus an error message.
func (h *DashboardHandler) Page(c echo.Context) error {
	req := &models.DashboardQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.renderError(c, http.StatusBadRequest, h.dash.EmptyView(usecase.Selection{}), validationMessage(verr))
	}
	sel := selection(req.Symbol, req.Start, req.Years)

	view, err := h.dash.Run(c.Request().Context(), sel)
	if err != nil {
		appErr := MapError(err)
		h.logError("dashboard page error", sel, err)
		if view.Request.Symbol == "" {
			view = h.dash.EmptyView(usecase.Selection{})
		}
		return h.renderError(c, appErr.Status, view, appErr.Message)
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, view); err != nil {
		h.logError("dashboard render error", sel, err)
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Forecast returns the dashboard view as JSON.
func (h *DashboardHandler) Forecast(c echo.Context) error {
	req := &models.DashboardQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sel := selection(req.Symbol, req.Start, req.Years)

	view, err := h.dash.Run(c.Request().Context(), sel)
	if err != nil {
		h.logError("forecast usecase error", sel, err)
		return xhttp.AppErrorResponse(c, MapError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

// Prices returns the fetched series without forecasting.
func (h *DashboardHandler) Prices(c echo.Context) error {
	req := &models.PricesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sel := selection(req.Symbol, req.Start, 0)

	series, err := h.dash.Prices(c.Request().Context(), sel)
	if err != nil {
		h.logError("prices usecase error", sel, err)
		return xhttp.AppErrorResponse(c, MapError(err))
	}
	return xhttp.SuccessResponse(c, series)
}

// Download streams the selected series as a CSV attachment.
func (h *DashboardHandler) Download(c echo.Context) error {
	req := &models.PricesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sel := selection(req.Symbol, req.Start, 0)

	name, data, err := h.dash.Export(c.Request().Context(), sel)
	if err != nil {
		h.logError("download usecase error", sel, err)
		return xhttp.AppErrorResponse(c, MapError(err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, usecase.CSVContentType, data)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// MapError converts pipeline errors to HTTP application errors.
func MapError(err error) *xhttp.AppError {
	var (
		fetchErr *models.FetchError
		emptyErr *models.EmptySeriesError
		fitErr   *models.FitError
		appErr   *xhttp.AppError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrInvalidSelection):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.As(err, &fetchErr):
		return xhttp.NewAppError("ERR_FETCH", "symbol", err.Error(), http.StatusBadGateway).
			WithParam("symbol", fetchErr.Symbol).WithError(err)
	case errors.As(err, &emptyErr):
		return xhttp.NewAppError("ERR_EMPTY_SERIES", "symbol", err.Error(), http.StatusNotFound).
			WithParam("symbol", emptyErr.Symbol).WithError(err)
	case errors.As(err, &fitErr):
		return xhttp.NewAppError("ERR_FIT", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func selection(symbol, start string, years int) usecase.Selection {
	return usecase.Selection{Symbol: symbol, Start: start, Years: years}
}

func (h *DashboardHandler) renderError(c echo.Context, status int, view models.DashboardView, message string) error {
	var buf bytes.Buffer
	if err := h.renderer.RenderError(&buf, view, message); err != nil {
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func (h *DashboardHandler) logError(msg string, sel usecase.Selection, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Error(msg,
		xlogger.String("symbol", sel.Symbol),
		xlogger.String("start", sel.Start),
		xlogger.Int("years", sel.Years),
		xlogger.Error(err),
	)
}

func validationMessage(verr interface{}) string {
	errs, ok := verr.([]xhttp.ValidationError)
	if !ok || len(errs) == 0 {
		return "invalid request"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
