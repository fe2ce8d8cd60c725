// Package sheets implements the export store on the Google Sheets API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jonathan/climatewash/internal/export"
)

// Value input options. Generated cells are parsed so timestamps become dates and scores numbers;
// content cells are stored verbatim so text such as "=IMPORTXML(...)" never becomes a formula.
const (
	inputParsed = "USER_ENTERED"
	inputRaw    = "RAW"
)

// InputOption returns the value input option used for the 1-based column col
func InputOption(col int) string {
	if export.Generated(col) {
		return inputParsed
	}
	return inputRaw
}

// Store opens spreadsheets through the Sheets v4 API
type Store struct {
	service *sheets.Service
}

// New creates a store authenticated with a service account credentials file.
// Extra client options are applied after the credentials.
func New(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Store, error) {
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &Store{service: service}, nil
}

// Open implements export.Store
func (s *Store) Open(ctx context.Context, id string) (export.Workbook, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, wrapNotFound(err)
	}

	titles := make(map[string]bool, len(spreadsheet.Sheets))
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}
	return &workbook{service: s.service, id: id, titles: titles}, nil
}

func wrapNotFound(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", export.ErrNotFound, err)
	}
	return err
}

type workbook struct {
	service *sheets.Service
	id      string
	titles  map[string]bool
}

func (w *workbook) Sheet(_ context.Context, title string) (export.Sheet, error) {
	if !w.titles[title] {
		return nil, export.ErrNotFound
	}
	return &sheet{service: w.service, id: w.id, title: title}, nil
}

func (w *workbook) AddSheet(ctx context.Context, title string, rows, cols int) (export.Sheet, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    int64(rows),
						ColumnCount: int64(cols),
					},
				},
			},
		}},
	}
	if _, err := w.service.Spreadsheets.BatchUpdate(w.id, req).Context(ctx).Do(); err != nil {
		return nil, err
	}
	w.titles[title] = true
	return &sheet{service: w.service, id: w.id, title: title}, nil
}

type sheet struct {
	service *sheets.Service
	id      string
	title   string
}

func (s *sheet) Values(ctx context.Context) ([][]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.id, quoteTitle(s.title)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, cell := range r {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows, nil
}

func (s *sheet) AppendRow(ctx context.Context, values []string) error {
	_, err := s.service.Spreadsheets.Values.Append(s.id, quoteTitle(s.title), &sheets.ValueRange{Values: [][]interface{}{toCells(values)}}).
		ValueInputOption(inputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (s *sheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	_, err := s.service.Spreadsheets.Values.Update(s.id, CellRange(s.title, row, col), &sheets.ValueRange{Values: [][]interface{}{{value}}}).
		ValueInputOption(InputOption(col)).
		Context(ctx).
		Do()
	return err
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// CellRange returns the A1 notation of one cell, e.g. 'Results'!K2
func CellRange(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), ColumnName(col), row)
}

// ColumnName converts a 1-based column index to its letter name
func ColumnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
