package invtest

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/slogx"
	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errDuplicateIP = errors.New("ip already exists")

// handleListServers serves GET /api/servers.
func (b *Backend) handleListServers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		httpx.WriteMessage(w, http.StatusBadRequest, "limit must be at least 1")
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	sel, err := parseSelection(q)
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	matched := sel.apply(b.sortedServersLocked())
	b.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, inventory.ListServersResponse{
		Data:  page(matched, offset, limit),
		Total: len(matched),
	})
}

// handleServerStatus serves GET /api/servers/status.
func (b *Backend) handleServerStatus(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out inventory.ServerStatusResponse
	for _, s := range b.servers {
		if s.Status {
			out.Online++
		} else {
			out.Offline++
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// handleCreateServer serves POST /api/servers.
func (b *Backend) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req inventory.CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if msg := checkServer(req.Name, req.IP); msg != "" {
		httpx.WriteMessage(w, http.StatusBadRequest, msg)
		return
	}

	b.mu.Lock()
	s, err := b.createServerLocked(req)
	b.mu.Unlock()

	if err != nil {
		httpx.WriteMessage(w, http.StatusConflict, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, s)
}

// handleUpdateServer serves PATCH|PUT /api/servers/{id}.
func (b *Backend) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var req inventory.UpdateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if msg := checkServer(req.Name, req.IP); msg != "" {
		httpx.WriteMessage(w, http.StatusBadRequest, msg)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.servers[id]
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, "Server not found")
		return
	}
	if other := b.findServerByIPLocked(req.IP); other != nil && other.ID != id {
		httpx.WriteMessage(w, http.StatusConflict, errDuplicateIP.Error())
		return
	}

	s.Name, s.Status, s.IP = req.Name, req.Status, req.IP
	s.UpdatedAt = b.clock.Now().UTC()
	httpx.WriteJSON(w, http.StatusOK, s)
}

// handleDeleteServer serves DELETE /api/servers/{id}.
func (b *Backend) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.servers[id]; !ok {
		httpx.WriteMessage(w, http.StatusNotFound, "Server not found")
		return
	}
	delete(b.servers, id)
	delete(b.uptime, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleImport serves POST /api/servers/import. It expects exactly one file in
// the listserver field and reports per-line results.
func (b *Backend) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return
	}
	files := r.MultipartForm.File[inventory.ImportField]
	if len(files) != 1 {
		httpx.WriteMessage(w, http.StatusBadRequest,
			fmt.Sprintf("expected exactly one file in field %q, got %d", inventory.ImportField, len(files)))
		return
	}

	src, err := files[0].Open()
	if err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, "Failed to open file: "+err.Error())
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, "Failed to open file: "+err.Error())
		return
	}

	rows, err := inventory.ReadImportWorkbook(bytes.NewReader(data))
	var werr *inventory.WorkbookError
	if err != nil && !errors.As(err, &werr) {
		httpx.WriteMessage(w, http.StatusBadRequest, "Failed to parse Excel: "+err.Error())
		return
	}

	resp := inventory.ImportServersResponse{
		Message:      "Servers upload completed with detailed results.",
		SuccessLines: []int{},
		FailureLines: []int{},
	}
	if werr != nil {
		for _, re := range werr.Rows {
			resp.FailureLines = append(resp.FailureLines, re.Line)
		}
	}

	b.mu.Lock()
	b.lastImport = &Upload{Field: inventory.ImportField, Filename: files[0].Filename, Data: data}
	for _, row := range rows {
		if checkServer(row.Server.Name, row.Server.IP) != "" {
			resp.FailureLines = append(resp.FailureLines, row.Line)
			continue
		}
		if _, err := b.createServerLocked(row.Server); err != nil {
			resp.FailureLines = append(resp.FailureLines, row.Line)
			continue
		}
		resp.SuccessLines = append(resp.SuccessLines, row.Line)
	}
	b.mu.Unlock()

	slices.Sort(resp.FailureLines)
	resp.SuccessCount = len(resp.SuccessLines)
	resp.FailureCount = len(resp.FailureLines)

	slogx.FromContext(r.Context()).Info("servers imported",
		"success", resp.SuccessCount,
		"failure", resp.FailureCount,
	)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// handleExport serves GET /api/servers/export as an xlsx attachment.
func (b *Backend) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		httpx.WriteMessage(w, http.StatusBadRequest, "limit must be at least 1")
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	sel, err := parseSelection(q)
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	sel.createdFrom, sel.createdTo, err = dateRange(q.Get("startCreated"), q.Get("endCreated"))
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid startCreated/endCreated date format")
		return
	}
	sel.updatedFrom, sel.updatedTo, err = dateRange(q.Get("startUpdated"), q.Get("endUpdated"))
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid startUpdated/endUpdated date format")
		return
	}

	b.mu.Lock()
	rows := page(sel.apply(b.sortedServersLocked()), offset, limit)
	b.mu.Unlock()

	var buf bytes.Buffer
	if err := inventory.WriteServersWorkbook(&buf, rows); err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, "Error creating Excel file: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+inventory.ExportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleUptime serves GET /api/servers/{id}/uptime?date=YYYY-MM-DD.
func (b *Backend) handleUptime(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if _, err := time.Parse(time.DateOnly, r.URL.Query().Get("date")); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.servers[id]
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, "Server not found")
		return
	}
	hours, ok := b.uptime[id]
	if !ok && s.Status {
		hours = 24
	}
	httpx.WriteJSON(w, http.StatusOK, hours)
}

// handleReport serves GET /api/servers/report?start=&end=&mail=.
func (b *Backend) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, mail := q.Get("start"), q.Get("end"), q.Get("mail")

	from, err1 := time.Parse(time.DateOnly, start)
	to, err2 := time.Parse(time.DateOnly, end)
	if err1 != nil || err2 != nil || to.Before(from) {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid date format")
		return
	}
	if !strings.Contains(mail, "@") {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid email")
		return
	}

	b.mu.Lock()
	b.reports = append(b.reports, Report{Start: start, End: end, Mail: mail})
	b.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, "Report sent successfully")
}

// ============================================================================
// Helpers
// ============================================================================

func (b *Backend) createServerLocked(req inventory.CreateServerRequest) (inventory.Server, error) {
	if b.findServerByIPLocked(req.IP) != nil {
		return inventory.Server{}, errDuplicateIP
	}

	now := b.clock.Now().UTC()
	s := &inventory.Server{
		ID:        b.nextServerID,
		CreatedAt: now,
		UpdatedAt: now,
		Name:      req.Name,
		Status:    req.Status,
		IP:        req.IP,
	}
	b.nextServerID++
	b.servers[s.ID] = s
	return *s, nil
}

func (b *Backend) findServerByIPLocked(ip string) *inventory.Server {
	for _, s := range b.servers {
		if s.IP == ip {
			return s
		}
	}
	return nil
}

func (b *Backend) sortedServersLocked() []inventory.Server {
	out := make([]inventory.Server, 0, len(b.servers))
	for _, s := range b.servers {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(x, y inventory.Server) int { return cmp.Compare(x.ID, y.ID) })
	return out
}

func checkServer(name, ip string) string {
	if strings.TrimSpace(name) == "" {
		return "name is required"
	}
	if parsed := net.ParseIP(ip); parsed == nil || parsed.To4() == nil {
		return fmt.Sprintf("invalid IPv4 address %q", ip)
	}
	return ""
}

func pathID(r *http.Request) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 0)
	return uint(id)
}

// selection is the filter and sort part of list and export queries.
type selection struct {
	status *bool
	field  string
	desc   bool

	filterStatus inventory.ServerStatus
	createdFrom  time.Time
	createdTo    time.Time
	updatedFrom  time.Time
	updatedTo    time.Time
}

func parseSelection(q url.Values) (selection, error) {
	var sel selection

	if v := q.Get("status"); v != "" {
		st, err := strconv.ParseBool(v)
		if err != nil {
			return sel, errors.New("status must be true or false")
		}
		sel.status = &st
	}

	sel.field = cmp.Or(q.Get("field"), "id")
	if !slices.Contains([]string{"id", "name", "ip", "status", "created_at", "updated_at"}, sel.field) {
		return sel, fmt.Errorf("cannot sort by %q", sel.field)
	}

	switch q.Get("order") {
	case "", "asc":
	case "desc":
		sel.desc = true
	default:
		return sel, errors.New("order must be asc or desc")
	}

	if v := q.Get("filter.status"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return sel, errors.New("filter.status must be 0, 1 or 2")
		}
		sel.filterStatus = inventory.ServerStatus(n)
	}

	var err error
	if sel.createdFrom, sel.createdTo, err = optionalDates(q.Get("filter.createdAtFrom"), q.Get("filter.createdAtTo")); err != nil {
		return sel, err
	}
	if sel.updatedFrom, sel.updatedTo, err = optionalDates(q.Get("filter.updatedAtFrom"), q.Get("filter.updatedAtTo")); err != nil {
		return sel, err
	}
	return sel, nil
}

func (sel selection) apply(in []inventory.Server) []inventory.Server {
	out := in[:0:0]
	for _, s := range in {
		if sel.status != nil && s.Status != *sel.status {
			continue
		}
		if sel.filterStatus == inventory.StatusOn && !s.Status || sel.filterStatus == inventory.StatusOff && s.Status {
			continue
		}
		if !within(s.CreatedAt, sel.createdFrom, sel.createdTo) || !within(s.UpdatedAt, sel.updatedFrom, sel.updatedTo) {
			continue
		}
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b inventory.Server) int {
		var c int
		switch sel.field {
		case "name":
			c = cmp.Compare(a.Name, b.Name)
		case "ip":
			c = cmp.Compare(a.IP, b.IP)
		case "status":
			c = cmp.Compare(boolInt(a.Status), boolInt(b.Status))
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if sel.desc {
			return -c
		}
		return c
	})
	return out
}

func page(in []inventory.Server, offset, limit int) []inventory.Server {
	if offset < 0 || offset >= len(in) {
		return []inventory.Server{}
	}
	return in[offset:min(offset+limit, len(in))]
}

// within reports whether t falls on or between the days from and to. Zero
// bounds are open.
func within(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func optionalDates(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error
	if from != "" {
		if f, err = time.Parse(time.DateOnly, from); err != nil {
			return f, t, fmt.Errorf("invalid date %q", from)
		}
	}
	if to != "" {
		if t, err = time.Parse(time.DateOnly, to); err != nil {
			return f, t, fmt.Errorf("invalid date %q", to)
		}
	}
	return f, t, nil
}

// dateRange applies only when both ends are set, like the export endpoint of
// the real backend.
func dateRange(from, to string) (time.Time, time.Time, error) {
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, nil
	}
	return optionalDates(from, to)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
