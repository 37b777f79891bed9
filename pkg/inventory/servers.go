package inventory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/qs"
)

// ImportField is the multipart field the backend reads an import workbook from.
const ImportField = "listserver"

// ServerService manages inventory servers under /servers.
type ServerService struct {
	service
}

// List returns one page of servers.
func (s *ServerService) List(ctx context.Context, req ListServersRequest) (*ListServersResponse, error) {
	query, err := qs.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out ListServersResponse
	if err := s.doJSON(ctx, http.MethodGet, withQuery("", query), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status counts online and offline servers.
func (s *ServerService) Status(ctx context.Context) (*ServerStatusResponse, error) {
	var out ServerStatusResponse
	if err := s.doJSON(ctx, http.MethodGet, "status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ServerService) Create(ctx context.Context, req CreateServerRequest) (*Server, error) {
	var out Server
	if err := s.doJSON(ctx, http.MethodPost, "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ServerService) Update(ctx context.Context, req UpdateServerRequest) (*Server, error) {
	var out Server
	if err := s.doJSON(ctx, http.MethodPatch, idPath(req.ID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ServerService) Delete(ctx context.Context, id uint) error {
	return s.doJSON(ctx, http.MethodDelete, idPath(id), nil, nil)
}

// Import uploads a workbook of servers (see WriteImportWorkbook) as the single
// file of a multipart form.
func (s *ServerService) Import(ctx context.Context, filename string, file io.Reader) (*ImportServersResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile(ImportField, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := s.http.NewRequest(ctx, http.MethodPost, "import", bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out ImportServersResponse
	if err := s.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export returns the workbook bytes for the selected servers.
func (s *ServerService) Export(ctx context.Context, req ExportServersRequest) ([]byte, error) {
	resp, err := s.export(ctx, req)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return data, nil
}

// DownloadExport streams the export into dir/export.xlsx and returns its path.
func (s *ServerService) DownloadExport(ctx context.Context, req ExportServersRequest, dir string) (string, error) {
	resp, err := s.export(ctx, req)
	if err != nil {
		return "", err
	}
	defer drainClose(resp.Body)

	return saveFile(dir, ExportFileName, resp.Body)
}

func (s *ServerService) export(ctx context.Context, req ExportServersRequest) (*http.Response, error) {
	query, err := qs.Marshal(req.query())
	if err != nil {
		return nil, err
	}

	r, err := s.http.NewRequest(ctx, http.MethodGet, withQuery("export", query), nil)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", "application/octet-stream")
	return s.http.Do(r)
}

// Uptime returns how many hours server id was up on day.
func (s *ServerService) Uptime(ctx context.Context, id uint, day time.Time) (float64, error) {
	path := idPath(id) + "/uptime?date=" + day.Format(time.DateOnly)

	var hours float64
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &hours); err != nil {
		return 0, err
	}
	return hours, nil
}

func idPath(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}
