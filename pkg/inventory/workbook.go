package inventory

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	importHeader = []string{"Name", "Status", "IP"}
	exportHeader = []string{"ID", "Name", "Status", "IP", "CreatedAt", "UpdatedAt"}
)

const workbookTimeLayout = time.DateTime

// RowError describes one rejected spreadsheet row.
type RowError struct {
	Line   int
	Reason string
}

// WorkbookError lists the rows that could not be parsed. Functions returning
// it also return the rows that did parse.
type WorkbookError struct {
	Rows []RowError
}

func (e *WorkbookError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, fmt.Sprintf("line %d: %s", r.Line, r.Reason))
	}
	return "workbook: " + strings.Join(parts, "; ")
}

// ImportRow is a parsed import row and the spreadsheet line it came from.
type ImportRow struct {
	Line   int
	Server CreateServerRequest
}

// WriteImportWorkbook writes servers in the layout Import expects: a header
// row of Name, Status, IP followed by one row per server.
func WriteImportWorkbook(w io.Writer, servers []CreateServerRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := writeRow(f, sheet, 1, importHeader); err != nil {
		return err
	}
	for i, s := range servers {
		row := []string{s.Name, strconv.FormatBool(s.Status), s.IP}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadImportWorkbook parses the first sheet of an import workbook. Rows with
// the wrong number of cells, an unparsable status or an empty name or IP are
// reported in a *WorkbookError.
func ReadImportWorkbook(r io.Reader) ([]ImportRow, error) {
	rows, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	var (
		out []ImportRow
		bad []RowError
	)
	for i, row := range rows[min(1, len(rows)):] {
		line := i + 2
		if len(row) != len(importHeader) {
			bad = append(bad, RowError{Line: line, Reason: fmt.Sprintf("incorrect number of fields (%d)", len(row))})
			continue
		}
		status, err := strconv.ParseBool(strings.TrimSpace(row[1]))
		if err != nil {
			bad = append(bad, RowError{Line: line, Reason: fmt.Sprintf("invalid status %q", row[1])})
			continue
		}
		name, ip := strings.TrimSpace(row[0]), strings.TrimSpace(row[2])
		if name == "" || ip == "" {
			bad = append(bad, RowError{Line: line, Reason: "name and ip are required"})
			continue
		}
		out = append(out, ImportRow{Line: line, Server: CreateServerRequest{Name: name, Status: status, IP: ip}})
	}

	if len(bad) > 0 {
		return out, &WorkbookError{Rows: bad}
	}
	return out, nil
}

// WriteServersWorkbook writes servers in the export layout.
func WriteServersWorkbook(w io.Writer, servers []Server) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := writeRow(f, sheet, 1, exportHeader); err != nil {
		return err
	}
	for i, s := range servers {
		row := []string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.Name,
			strconv.FormatBool(s.Status),
			s.IP,
			s.CreatedAt.UTC().Format(workbookTimeLayout),
			s.UpdatedAt.UTC().Format(workbookTimeLayout),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadServersWorkbook parses an exported workbook. Columns are located by
// header name, so their order does not matter; ID, Name, Status and IP are
// required, CreatedAt and UpdatedAt are optional.
func ReadServersWorkbook(r io.Reader) ([]Server, error) {
	rows, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, h := range exportHeader[:4] {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("workbook: missing %q column", h)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		out []Server
		bad []RowError
	)
	for i, row := range rows[1:] {
		line := i + 2

		id, err := strconv.ParseUint(cell(row, "ID"), 10, 0)
		if err != nil {
			bad = append(bad, RowError{Line: line, Reason: fmt.Sprintf("invalid ID %q", cell(row, "ID"))})
			continue
		}
		status, err := strconv.ParseBool(cell(row, "Status"))
		if err != nil {
			bad = append(bad, RowError{Line: line, Reason: fmt.Sprintf("invalid status %q", cell(row, "Status"))})
			continue
		}

		s := Server{
			ID:     uint(id),
			Name:   cell(row, "Name"),
			Status: status,
			IP:     cell(row, "IP"),
		}
		s.CreatedAt, _ = parseWorkbookTime(cell(row, "CreatedAt"))
		s.UpdatedAt, _ = parseWorkbookTime(cell(row, "UpdatedAt"))
		out = append(out, s)
	}

	if len(bad) > 0 {
		return out, &WorkbookError{Rows: bad}
	}
	return out, nil
}

func readFirstSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook: no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func parseWorkbookTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(workbookTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
