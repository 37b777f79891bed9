package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MailService triggers emailed status reports. It shares the /servers base
// with ServerService.
type MailService struct {
	service
}

// SendReport asks the backend to mail the report for [From, To] to Email.
func (m *MailService) SendReport(ctx context.Context, req SendReportRequest) (*SendReportResponse, error) {
	if req.Email == "" {
		return nil, &ValidationError{Fields: map[string]string{"email": "is required"}}
	}
	if req.To.Before(req.From) {
		return nil, &ValidationError{Fields: map[string]string{"to": "must not be before from"}}
	}

	// start and end are plain dates; only the address needs escaping.
	path := fmt.Sprintf("report?start=%s&end=%s&mail=%s",
		req.From.Format(time.DateOnly),
		req.To.Format(time.DateOnly),
		url.QueryEscape(req.Email),
	)

	r, err := m.http.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.http.Do(r)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &SendReportResponse{Message: reportMessage(body)}, nil
}

// reportMessage accepts an empty body, a JSON string or a {"message"} object.
func reportMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(body)
}
