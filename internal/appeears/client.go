package appeears

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloomwatch/backend/internal/domain"
)

// DefaultBaseURL is the public AppEEARS API root
const DefaultBaseURL = "https://appeears.earthdatacloud.nasa.gov/api"

// CredentialSource hands out bearer tokens and accepts invalidation
type CredentialSource interface {
	ValidCredential(ctx context.Context) (Credential, error)
	Invalidate()
}

// ClientConfig holds task client settings
type ClientConfig struct {
	BaseURL         string
	SubmitTimeout   time.Duration
	StatusTimeout   time.Duration
	DownloadTimeout time.Duration
	Poll            PollPolicy
}

// TaskClient runs point time series extraction jobs against AppEEARS
type TaskClient struct {
	cfg         ClientConfig
	session     CredentialSource
	httpClient  *http.Client
	logger      *zap.Logger
	newTaskName func() string
}

// NewTaskClient creates a task client that authenticates through session
func NewTaskClient(cfg ClientConfig, session CredentialSource, logger *zap.Logger) *TaskClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 60 * time.Second
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 30 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 120 * time.Second
	}
	if cfg.Poll.MaxAttempts <= 0 {
		cfg.Poll = DefaultPollPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskClient{
		cfg:        cfg,
		session:    session,
		httpClient: &http.Client{},
		logger:     logger,
		newTaskName: func() string {
			return "ndvi_timeseries_" + uuid.NewString()
		},
	}
}

// PrepareCredential makes sure a fresh token is cached before a job starts.
// It returns domain.ErrNoCredential when none can be obtained.
func (c *TaskClient) PrepareCredential(ctx context.Context) error {
	_, err := c.session.ValidCredential(ctx)
	return err
}

// FetchSeries submits a point extraction task, waits for it and returns the
// parsed NDVI series. domain.ErrNoCredential means no token was available and
// nothing was submitted.
func (c *TaskClient) FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.SeriesResult, error) {
	cred, err := c.session.ValidCredential(ctx)
	if err != nil {
		return domain.SeriesResult{}, err
	}

	product := req.Product
	if product == "" {
		product = domain.DefaultProduct
	}
	layer := LayerFor(product)
	log := c.logger.With(zap.String("product", product), zap.String("layer", layer))

	taskID, err := c.submit(ctx, cred.Token, req, product, layer)
	if err != nil {
		return domain.SeriesResult{}, c.checkAuth(err)
	}
	log = log.With(zap.String("task_id", taskID))
	log.Info("appeears task created")

	if err := c.await(ctx, cred.Token, taskID, log); err != nil {
		return domain.SeriesResult{}, c.checkAuth(err)
	}

	file, err := c.findCSV(ctx, cred.Token, taskID)
	if err != nil {
		return domain.SeriesResult{}, c.checkAuth(err)
	}
	log.Debug("bundle csv located", zap.String("file", file.FileName))

	points, err := c.download(ctx, cred.Token, taskID, file.FileID)
	if err != nil {
		return domain.SeriesResult{}, c.checkAuth(err)
	}
	log.Info("series parsed", zap.Int("points", len(points)))

	return domain.SeriesResult{
		Points: points,
		Meta: domain.SeriesMeta{
			Mode:    domain.ModeLive,
			Lat:     req.Latitude,
			Lon:     req.Longitude,
			Start:   req.Start,
			End:     req.End,
			Product: product,
			Layer:   layer,
			TaskID:  taskID,
		},
		Source: domain.SourceReal,
	}, nil
}

func (c *TaskClient) submit(ctx context.Context, token string, req domain.SeriesRequest, product, layer string) (string, error) {
	start, err := toMonthDayYear(req.Start)
	if err != nil {
		return "", err
	}
	end, err := toMonthDayYear(req.End)
	if err != nil {
		return "", err
	}

	payload := taskRequest{
		TaskType: "point",
		TaskName: c.newTaskName(),
		Params: taskParams{
			Dates:       []taskDate{{StartDate: start, EndDate: end}},
			Layers:      []taskLayer{{Product: product, Layer: layer}},
			Coordinates: []taskCoordinate{{Latitude: req.Latitude, Longitude: req.Longitude}},
			Output:      taskOutput{Format: "csv"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("appeears: failed to marshal task: %w", err)
	}

	data, err := c.do(ctx, "submit", http.MethodPost, "/task", token, bytes.NewReader(body), c.cfg.SubmitTimeout)
	if err != nil {
		return "", err
	}

	var created taskCreated
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("appeears: failed to decode task response: %w", err)
	}
	if created.TaskID == "" {
		return "", domain.ErrSubmissionFailed
	}
	return created.TaskID, nil
}

func (c *TaskClient) await(ctx context.Context, token, taskID string, log *zap.Logger) error {
	status := statusPending
	return c.cfg.Poll.Run(ctx, func(ctx context.Context, attempt int) (bool, error) {
		data, err := c.do(ctx, "status", http.MethodGet, "/task/"+taskID, token, nil, c.cfg.StatusTimeout)
		if err != nil {
			return false, err
		}
		var st taskStatus
		if err := json.Unmarshal(data, &st); err != nil {
			return false, fmt.Errorf("appeears: failed to decode task status: %w", err)
		}
		if st.Status != "" {
			status = st.Status
		}
		log.Debug("appeears task status", zap.String("status", status), zap.Int("attempt", attempt))

		switch status {
		case statusDone:
			return true, nil
		case statusFailed:
			return false, domain.ErrTaskFailed
		}
		return false, nil
	})
}

func (c *TaskClient) findCSV(ctx context.Context, token, taskID string) (bundleFile, error) {
	data, err := c.do(ctx, "bundle", http.MethodGet, "/bundle/"+taskID, token, nil, c.cfg.StatusTimeout)
	if err != nil {
		return bundleFile{}, err
	}
	var listing bundleListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return bundleFile{}, fmt.Errorf("appeears: failed to decode bundle: %w", err)
	}
	for _, f := range listing.Files {
		if strings.HasSuffix(strings.ToLower(f.FileName), "csv") {
			return f, nil
		}
	}
	return bundleFile{}, domain.ErrBundleMissing
}

func (c *TaskClient) download(ctx context.Context, token, taskID, fileID string) ([]domain.SeriesPoint, error) {
	data, err := c.do(ctx, "download", http.MethodGet, "/bundle/"+taskID+"/"+fileID, token, nil, c.cfg.DownloadTimeout)
	if err != nil {
		return nil, err
	}
	return ParseSeriesCSV(bytes.NewReader(data))
}

// do performs one authenticated call and returns the body of a 2xx response
func (c *TaskClient) do(ctx context.Context, step, method, path, token string, body io.Reader, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("appeears: failed to create %s request: %w", step, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appeears: %s request failed: %w", step, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("appeears: failed to read %s response: %w", step, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newUpstreamError(step, resp.StatusCode, data)
	}
	return data, nil
}

// checkAuth drops the cached token when the upstream rejected it
func (c *TaskClient) checkAuth(err error) error {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) && ue.StatusCode == http.StatusUnauthorized {
		c.session.Invalidate()
	}
	return err
}

// toMonthDayYear converts YYYY-MM-DD into the MM-DD-YYYY form the task API expects
func toMonthDayYear(iso string) (string, error) {
	t, err := time.Parse(domain.DateLayout, iso)
	if err != nil {
		return "", domain.NewInvalidInputError("date %q is not YYYY-MM-DD", iso)
	}
	return t.Format("01-02-2006"), nil
}
