package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
)

// service is the shared core of every domain service: one configured client.
type service struct {
	http *httpx.Client
}

// do sends req and decodes a JSON body into out. A nil out discards the body.
func (s service) do(req *http.Request, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// doJSON builds a request with an optional JSON body and sends it.
func (s service) doJSON(ctx context.Context, method, path string, in, out any) error {
	var (
		req *http.Request
		err error
	)
	if in != nil {
		req, err = s.http.NewJSONRequest(ctx, method, path, in)
	} else {
		req, err = s.http.NewRequest(ctx, method, path, nil)
	}
	if err != nil {
		return err
	}
	return s.do(req, out)
}

// decodeJSON decodes a successful response into target and closes the body.
// Non-2xx responses never reach here; the common interceptor turns them into
// *httpx.ServerError.
func decodeJSON(resp *http.Response, target any) error {
	defer drainClose(resp.Body)

	if target == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// drainClose reads what is left of body so the connection can be reused.
func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}
