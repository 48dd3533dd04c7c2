package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/internal/phenology"
	"github.com/bloomwatch/backend/internal/service"
)

// SeriesAcquirer produces an NDVI series for a point request
type SeriesAcquirer interface {
	Acquire(ctx context.Context, req domain.SeriesRequest) (domain.SeriesResult, error)
}

// CredentialStatus reports the AppEEARS session state
type CredentialStatus interface {
	Configured() bool
	Cached() bool
}

// Handler contains all HTTP handlers
type Handler struct {
	series      SeriesAcquirer
	classifier  *phenology.Classifier
	credentials CredentialStatus
	journal     domain.JournalRepository
	serviceName string
	logger      *zap.Logger
	now         func() time.Time
}

// HandlerConfig groups the dependencies of Handler
type HandlerConfig struct {
	Series      SeriesAcquirer
	Classifier  *phenology.Classifier
	Credentials CredentialStatus
	Journal     domain.JournalRepository
	ServiceName string
	Logger      *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Classifier == nil {
		cfg.Classifier = phenology.NewClassifier(phenology.DefaultThresholds())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		series:      cfg.Series,
		classifier:  cfg.Classifier,
		credentials: cfg.Credentials,
		journal:     cfg.Journal,
		serviceName: cfg.ServiceName,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// seriesResponse is the wire form of a SeriesResult
type seriesResponse struct {
	Points      []domain.SeriesPoint `json:"points"`
	Meta        domain.SeriesMeta    `json:"meta"`
	Warning     string               `json:"warning,omitempty"`
	ErrorDetail any                  `json:"errorDetail,omitempty"`
}

func toSeriesResponse(res domain.SeriesResult) seriesResponse {
	out := seriesResponse{
		Points:  res.Points,
		Meta:    res.Meta,
		Warning: service.Warning(res),
	}
	if out.Points == nil {
		out.Points = []domain.SeriesPoint{}
	}
	if res.Upstream != nil {
		out.ErrorDetail = res.Upstream.Detail()
	}
	return out
}

type analysisResponse struct {
	Series   *seriesResponse       `json:"series,omitempty"`
	Analysis domain.AnalysisResult `json:"analysis"`
	Vigor    *domain.Vigor         `json:"vigor,omitempty"`
}

type classifyRequest struct {
	Points      []domain.SeriesPoint `json:"points"`
	Crop        string               `json:"crop"`
	HorizonDays *float64             `json:"horizonDays"`
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	resp := fiber.Map{
		"ok":                    true,
		"serviceName":           h.serviceName,
		"time":                  h.now().UTC().Format(time.RFC3339),
		"credentialsConfigured": h.credentials != nil && h.credentials.Configured(),
		"credentialCached":      h.credentials != nil && h.credentials.Cached(),
	}
	if h.journal != nil {
		journal := "ok"
		if err := h.journal.Health(c.Context()); err != nil {
			journal = "unavailable"
		}
		resp["journal"] = journal
	}
	return c.JSON(resp)
}

// GetSeriesPoint returns the NDVI time series for one coordinate
func (h *Handler) GetSeriesPoint(c *fiber.Ctx) error {
	req, err := parseSeriesQuery(c)
	if err != nil {
		return err
	}

	res, err := h.series.Acquire(c.Context(), req)
	if err != nil {
		return h.acquireError(c, err)
	}

	return c.JSON(toSeriesResponse(res))
}

// GetPhenologyPoint acquires the series for a coordinate and classifies it
func (h *Handler) GetPhenologyPoint(c *fiber.Ctx) error {
	req, err := parseSeriesQuery(c)
	if err != nil {
		return err
	}
	horizon, err := parseHorizon(c.Query("horizon"))
	if err != nil {
		return err
	}

	res, err := h.series.Acquire(c.Context(), req)
	if err != nil {
		return h.acquireError(c, err)
	}

	series := toSeriesResponse(res)
	out := analysisResponse{
		Series:   &series,
		Analysis: h.classifier.Classify(res.Points, c.Query("crop"), horizon),
	}
	if v, ok := phenology.LatestVigor(res.Points); ok {
		out.Vigor = &v
	}
	return c.JSON(out)
}

// ClassifySeries classifies a caller-supplied series
func (h *Handler) ClassifySeries(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	horizon := float64(phenology.DefaultHorizonDays)
	if req.HorizonDays != nil {
		horizon = *req.HorizonDays
		if horizon < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "horizonDays must not be negative")
		}
	}

	out := analysisResponse{
		Analysis: h.classifier.Classify(req.Points, req.Crop, horizon),
	}
	if v, ok := phenology.LatestVigor(req.Points); ok {
		out.Vigor = &v
	}
	return c.JSON(out)
}

// GetBloomCalendar estimates the stage from the crop's fixed bloom window
func (h *Handler) GetBloomCalendar(c *fiber.Ctx) error {
	date := h.now()
	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		date = d
	}

	return c.JSON(phenology.CalendarEstimate(date, c.Query("crop")))
}

// acquireError maps acquisition failures to 400, 429 or a 500 with diagnostics
func (h *Handler) acquireError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrGateBusy):
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many concurrent NDVI requests, retry shortly")
	}

	h.logger.Error("ndvi request failed", zap.String("path", c.Path()), zap.Error(err))

	body := fiber.Map{
		"error":   "NDVI service error",
		"message": "NDVI acquisition failed",
		"detail":  err.Error(),
	}
	if ue, ok := domain.AsUpstream(err); ok {
		body["status"] = ue.StatusCode
		if d := ue.Detail(); d != nil {
			body["data"] = d
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// parseSeriesQuery copies the query values out of the request buffer, since
// the request outlives the handler through the acquisition journal
func parseSeriesQuery(c *fiber.Ctx) (domain.SeriesRequest, error) {
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	if latRaw == "" || lonRaw == "" {
		return domain.SeriesRequest{}, fiber.NewError(fiber.StatusBadRequest, "lat and lon are required")
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return domain.SeriesRequest{}, fiber.NewError(fiber.StatusBadRequest, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return domain.SeriesRequest{}, fiber.NewError(fiber.StatusBadRequest, "lon must be a number")
	}

	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		return domain.SeriesRequest{}, fiber.NewError(fiber.StatusBadRequest, "start and end are required (YYYY-MM-DD)")
	}

	return domain.SeriesRequest{
		Coordinate: domain.Coordinate{Latitude: lat, Longitude: lon},
		Start:      fiberutils.CopyString(start),
		End:        fiberutils.CopyString(end),
		Product:    fiberutils.CopyString(c.Query("product")),
	}, nil
}

func parseHorizon(raw string) (float64, error) {
	if raw == "" {
		return phenology.DefaultHorizonDays, nil
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil || h < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "horizon must be a non-negative number of days")
	}
	return h, nil
}
