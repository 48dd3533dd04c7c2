package appeears

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bloomwatch/backend/internal/domain"
)

const sampleCSV = "ID,Latitude,Longitude,Date,MYD13Q1_061__250m_16_days_NDVI\n" +
	"1,28.6,-106.1,2024-03-05,0.31\n" +
	"1,28.6,-106.1,2024-03-21,0.44\n"

// fakeAppEEARS is a scripted AppEEARS API
type fakeAppEEARS struct {
	t *testing.T

	mu          sync.Mutex
	submitted   []taskRequest
	statuses    []string // returned in order, last one repeats
	statusCalls int
	submitCode  int
	submitBody  string
	files       []bundleFile
	csv         string
}

func (f *fakeAppEEARS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer tok", r.Header.Get("Authorization"))
		var req taskRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.submitted = append(f.submitted, req)
		code, body := f.submitCode, f.submitBody
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
		}
		if body == "" {
			body = `{"task_id":"task-1","status":"pending"}`
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/task/task-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer tok", r.Header.Get("Authorization"))
		f.mu.Lock()
		i := f.statusCalls
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		status := f.statuses[i]
		f.statusCalls++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(taskStatus{TaskID: "task-1", Status: status})
	})
	mux.HandleFunc("/bundle/task-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(bundleListing{TaskID: "task-1", Files: f.files})
	})
	mux.HandleFunc("/bundle/task-1/file-csv", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(f.csv))
	})
	return mux
}

func (f *fakeAppEEARS) requests() []taskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]taskRequest(nil), f.submitted...)
}

func (f *fakeAppEEARS) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func newFake(t *testing.T) *fakeAppEEARS {
	return &fakeAppEEARS{
		t:        t,
		statuses: []string{"pending", "processing", "done"},
		files: []bundleFile{
			{FileID: "file-json", FileName: "task-1-request.json"},
			{FileID: "file-csv", FileName: "task-1-MYD13Q1-061-results.CSV"},
		},
		csv: sampleCSV,
	}
}

func newTestClient(t *testing.T, fake *fakeAppEEARS, maxAttempts int) (*TaskClient, *Session) {
	t.Helper()
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)

	session := NewSession(SessionConfig{BaseURL: ts.URL, Username: "alice", Password: "secret"}, zaptest.NewLogger(t))
	client := NewTaskClient(ClientConfig{
		BaseURL: ts.URL,
		Poll:    PollPolicy{Interval: time.Millisecond, MaxAttempts: maxAttempts, Sleep: noSleep},
	}, session, zaptest.NewLogger(t))
	client.newTaskName = func() string { return "ndvi_timeseries_test" }
	return client, session
}

var pointRequest = domain.SeriesRequest{
	Coordinate: domain.Coordinate{Latitude: 28.6, Longitude: -106.1},
	Start:      "2024-03-01",
	End:        "2024-04-30",
}

func TestTaskClient_FetchSeries(t *testing.T) {
	fake := newFake(t)
	client, _ := newTestClient(t, fake, 10)

	res, err := client.FetchSeries(context.Background(), pointRequest)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceReal, res.Source)
	assert.False(t, res.Synthetic())
	assert.Equal(t, []domain.SeriesPoint{
		{Date: "2024-03-05", NDVI: 0.31},
		{Date: "2024-03-21", NDVI: 0.44},
	}, res.Points)
	assert.Equal(t, domain.SeriesMeta{
		Mode:    domain.ModeLive,
		Lat:     28.6,
		Lon:     -106.1,
		Start:   "2024-03-01",
		End:     "2024-04-30",
		Product: domain.DefaultProduct,
		Layer:   DefaultLayer,
		TaskID:  "task-1",
	}, res.Meta)
	assert.Equal(t, 3, fake.polls())

	require.Len(t, fake.requests(), 1)
	sent := fake.requests()[0]
	assert.Equal(t, "point", sent.TaskType)
	assert.Equal(t, "ndvi_timeseries_test", sent.TaskName)
	assert.Equal(t, []taskDate{{StartDate: "03-01-2024", EndDate: "04-30-2024"}}, sent.Params.Dates)
	assert.Equal(t, []taskLayer{{Product: "MYD13Q1.061", Layer: "_250m_16_days_NDVI"}}, sent.Params.Layers)
	assert.Equal(t, []taskCoordinate{{Latitude: 28.6, Longitude: -106.1}}, sent.Params.Coordinates)
	assert.Equal(t, "csv", sent.Params.Output.Format)
}

func TestTaskClient_ProductOverrideKeepsLayerMapping(t *testing.T) {
	fake := newFake(t)
	client, _ := newTestClient(t, fake, 10)

	req := pointRequest
	req.Product = "MOD13Q1.061"
	res, err := client.FetchSeries(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "MOD13Q1.061", res.Meta.Product)
	assert.Equal(t, DefaultLayer, res.Meta.Layer)
	assert.Equal(t, "MOD13Q1.061", fake.requests()[0].Params.Layers[0].Product)
}

func TestTaskClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeAppEEARS)
		wantErr error
	}{
		{
			name:    "missing task id",
			setup:   func(f *fakeAppEEARS) { f.submitBody = `{"status":"pending"}` },
			wantErr: domain.ErrSubmissionFailed,
		},
		{
			name:    "task failed",
			setup:   func(f *fakeAppEEARS) { f.statuses = []string{"pending", "failed"} },
			wantErr: domain.ErrTaskFailed,
		},
		{
			name:    "task never finishes",
			setup:   func(f *fakeAppEEARS) { f.statuses = []string{"processing"} },
			wantErr: domain.ErrTaskTimeout,
		},
		{
			name:    "no csv in bundle",
			setup:   func(f *fakeAppEEARS) { f.files = []bundleFile{{FileID: "x", FileName: "readme.txt"}} },
			wantErr: domain.ErrBundleMissing,
		},
		{
			name:    "csv without ndvi column",
			setup:   func(f *fakeAppEEARS) { f.csv = "Date,EVI\n2024-01-01,0.2\n" },
			wantErr: domain.ErrMalformedArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake(t)
			tt.setup(fake)
			client, _ := newTestClient(t, fake, 5)

			_, err := client.FetchSeries(context.Background(), pointRequest)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, domain.IsRecoverableUpstream(err))
		})
	}
}

func TestTaskClient_UpstreamRejection(t *testing.T) {
	tests := []struct {
		name            string
		code            int
		wantRecoverable bool
		wantCached      bool
	}{
		{name: "unauthorized invalidates token", code: http.StatusUnauthorized, wantRecoverable: true, wantCached: false},
		{name: "forbidden", code: http.StatusForbidden, wantRecoverable: true, wantCached: true},
		{name: "bad request", code: http.StatusBadRequest, wantRecoverable: true, wantCached: true},
		{name: "server error", code: http.StatusBadGateway, wantRecoverable: false, wantCached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake(t)
			fake.submitCode = tt.code
			fake.submitBody = `{"message":"You must accept the EULA"}`
			client, session := newTestClient(t, fake, 5)

			_, err := client.FetchSeries(context.Background(), pointRequest)
			require.Error(t, err)

			ue, ok := domain.AsUpstream(err)
			require.True(t, ok)
			assert.Equal(t, "submit", ue.Step)
			assert.Equal(t, tt.code, ue.StatusCode)
			assert.Equal(t, "You must accept the EULA", ue.Message)
			assert.Equal(t, tt.wantRecoverable, ue.Recoverable())
			assert.Equal(t, tt.wantCached, session.Cached())
		})
	}
}

func TestTaskClient_NoCredentialSubmitsNothing(t *testing.T) {
	fake := newFake(t)
	ts := httptest.NewServer(fake.handler())
	defer ts.Close()

	session := NewSession(SessionConfig{BaseURL: ts.URL}, nil)
	client := NewTaskClient(ClientConfig{BaseURL: ts.URL}, session, nil)

	_, err := client.FetchSeries(context.Background(), pointRequest)
	assert.ErrorIs(t, err, domain.ErrNoCredential)
	assert.Empty(t, fake.requests())
}

func TestTaskClient_PrepareCredential(t *testing.T) {
	client, session := newTestClient(t, newFake(t), 5)
	require.NoError(t, client.PrepareCredential(context.Background()))
	assert.True(t, session.Cached())

	unconfigured := NewTaskClient(ClientConfig{}, NewSession(SessionConfig{}, nil), nil)
	assert.ErrorIs(t, unconfigured.PrepareCredential(context.Background()), domain.ErrNoCredential)
}

func TestLayerFor(t *testing.T) {
	assert.Equal(t, "_250m_16_days_NDVI", LayerFor("MYD13Q1.061"))
	assert.Equal(t, "_250m_16_days_NDVI", LayerFor("MOD13Q1.061"))
	assert.Equal(t, DefaultLayer, LayerFor("VNP13A1.002"))
}

func TestToMonthDayYear(t *testing.T) {
	got, err := toMonthDayYear("2024-02-09")
	require.NoError(t, err)
	assert.Equal(t, "02-09-2024", got)

	_, err = toMonthDayYear("09/02/2024")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
