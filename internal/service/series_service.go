package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/pkg/utils"
)

// SeriesFetcher runs one remote point time series job
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.SeriesResult, error)
}

// CredentialPreparer is implemented by fetchers whose credential step can run
// before the gate. A nil error leaves a fresh credential cached for FetchSeries.
type CredentialPreparer interface {
	PrepareCredential(ctx context.Context) error
}

// SeriesService validates requests, gates remote jobs and substitutes
// synthetic data when the remote service cannot be used
type SeriesService struct {
	fetcher        SeriesFetcher
	gate           *Gate
	synth          *SyntheticGenerator
	journal        JournalRepository
	logger         *zap.Logger
	defaultProduct string
	now            func() time.Time

	wgBg sync.WaitGroup // tracks background journal writes for graceful shutdown
}

// SeriesServiceConfig groups the collaborators of SeriesService
type SeriesServiceConfig struct {
	Fetcher        SeriesFetcher
	Gate           *Gate
	Synthetic      *SyntheticGenerator
	Journal        JournalRepository
	Logger         *zap.Logger
	DefaultProduct string
}

// NewSeriesService creates a new series acquisition service
func NewSeriesService(cfg SeriesServiceConfig) *SeriesService {
	if cfg.Gate == nil {
		cfg.Gate = NewGate(1)
	}
	if cfg.Synthetic == nil {
		cfg.Synthetic = NewSyntheticGenerator()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DefaultProduct == "" {
		cfg.DefaultProduct = domain.DefaultProduct
	}
	return &SeriesService{
		fetcher:        cfg.Fetcher,
		gate:           cfg.Gate,
		synth:          cfg.Synthetic,
		journal:        cfg.Journal,
		logger:         cfg.Logger,
		defaultProduct: cfg.DefaultProduct,
		now:            time.Now,
	}
}

// WaitBackground blocks until all background journal writes complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *SeriesService) WaitBackground() {
	s.wgBg.Wait()
}

// Acquire returns the NDVI series for req. Missing credentials and
// upstream rejections (400/401/403) yield a labeled synthetic series;
// invalid input, a busy gate and other failures are returned as errors.
func (s *SeriesService) Acquire(ctx context.Context, req domain.SeriesRequest) (domain.SeriesResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return domain.SeriesResult{}, err
	}

	var res domain.SeriesResult
	err = s.prepareCredential(ctx)
	if err == nil {
		err = s.gate.Do(ctx, func(ctx context.Context) error {
			var ferr error
			res, ferr = s.fetcher.FetchSeries(ctx, req)
			return ferr
		})
	}

	switch {
	case err == nil:
		s.logger.Info("ndvi series acquired",
			zap.String("task_id", res.Meta.TaskID),
			zap.String("product", res.Meta.Product),
			zap.Int("points", len(res.Points)))

	case errors.Is(err, domain.ErrGateBusy):
		s.logger.Warn("ndvi request rejected, gate busy")
		return domain.SeriesResult{}, err

	case errors.Is(err, domain.ErrNoCredential):
		s.logger.Warn("no appeears credential, serving demo series", zap.Error(err))
		res = s.synth.Series(req, domain.ModeDemo)
		res.Reason = domain.ReasonNoCredential

	case domain.IsRecoverableUpstream(err):
		ue, _ := domain.AsUpstream(err)
		s.logger.Warn("appeears rejected request, serving fallback series",
			zap.String("step", ue.Step),
			zap.Int("status", ue.StatusCode),
			zap.String("message", ue.Message))
		res = s.synth.Series(req, domain.ModeFallbackDemo)
		res.Reason = domain.ReasonUpstreamRejected
		res.Upstream = ue

	default:
		s.logger.Error("ndvi acquisition failed", zap.Error(err))
		return domain.SeriesResult{}, fmt.Errorf("series: %w", err)
	}

	s.record(req, res)
	return res, nil
}

// Warning renders the caller-facing note for a fallback result, or "" for
// results that need none
func Warning(res domain.SeriesResult) string {
	if res.Upstream == nil {
		return ""
	}
	msg := res.Upstream.Message
	if msg == "" {
		msg = "check EULA acceptance, layer and dates"
	}
	return fmt.Sprintf("AppEEARS %d: %s", res.Upstream.StatusCode, msg)
}

// prepareCredential runs the login step outside the gate when the fetcher
// supports it, so a refresh never holds the job slot
func (s *SeriesService) prepareCredential(ctx context.Context) error {
	p, ok := s.fetcher.(CredentialPreparer)
	if !ok {
		return nil
	}
	return p.PrepareCredential(ctx)
}

func (s *SeriesService) normalize(req domain.SeriesRequest) (domain.SeriesRequest, error) {
	if !utils.ValidLatLon(req.Latitude, req.Longitude) {
		return req, domain.NewInvalidInputError("lat/lon out of range")
	}

	req.Start = strings.TrimSpace(req.Start)
	req.End = strings.TrimSpace(req.End)
	if req.Start == "" || req.End == "" {
		return req, domain.NewInvalidInputError("start and end are required (YYYY-MM-DD)")
	}
	start, err := time.Parse(domain.DateLayout, req.Start)
	if err != nil {
		return req, domain.NewInvalidInputError("start must be YYYY-MM-DD")
	}
	end, err := time.Parse(domain.DateLayout, req.End)
	if err != nil {
		return req, domain.NewInvalidInputError("end must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return req, domain.NewInvalidInputError("end must not be before start")
	}

	req.Product = strings.TrimSpace(req.Product)
	if req.Product == "" {
		req.Product = s.defaultProduct
	}
	return req, nil
}

// record writes the outcome to the journal asynchronously
func (s *SeriesService) record(req domain.SeriesRequest, res domain.SeriesResult) {
	if s.journal == nil {
		return
	}

	rec := domain.AcquisitionRecord{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Start:      req.Start,
		End:        req.End,
		Product:    res.Meta.Product,
		Layer:      res.Meta.Layer,
		Mode:       res.Meta.Mode,
		PointCount: len(res.Points),
		Warning:    Warning(res),
		CreatedAt:  s.now().UTC(),
	}

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.journal.SaveAcquisition(bgCtx, rec); err != nil {
			s.logger.Warn("failed to save acquisition record", zap.Error(err))
		}
	}()
}
