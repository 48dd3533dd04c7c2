package appeears

import (
	"encoding/json"

	"github.com/bloomwatch/backend/internal/domain"
)

// Wire types for the AppEEARS REST API. Field names follow the service.

type loginResponse struct {
	TokenType  string `json:"token_type"`
	Token      string `json:"token"`
	Expiration string `json:"expiration"`
}

type taskRequest struct {
	TaskType string     `json:"task_type"`
	TaskName string     `json:"task_name"`
	Params   taskParams `json:"params"`
}

type taskParams struct {
	Dates       []taskDate       `json:"dates"`
	Layers      []taskLayer      `json:"layers"`
	Coordinates []taskCoordinate `json:"coordinates"`
	Output      taskOutput       `json:"output"`
}

type taskDate struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type taskLayer struct {
	Product string `json:"product"`
	Layer   string `json:"layer"`
}

type taskCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type taskOutput struct {
	Format string `json:"format"`
}

type taskCreated struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type taskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type bundleListing struct {
	TaskID string       `json:"task_id"`
	Files  []bundleFile `json:"files"`
}

type bundleFile struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// errorBody is the shape AppEEARS uses for error payloads
type errorBody struct {
	Message string `json:"message"`
}

// Task lifecycle states reported by the service
const (
	statusPending = "pending"
	statusDone    = "done"
	statusFailed  = "failed"
)

func newUpstreamError(step string, code int, body []byte) *domain.UpstreamError {
	ue := &domain.UpstreamError{Step: step, StatusCode: code, Body: body}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		ue.Message = eb.Message
	}
	return ue
}
