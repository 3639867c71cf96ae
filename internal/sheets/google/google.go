package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"coppia/internal/achievements"
	"coppia/internal/config"
	"coppia/internal/finance"
	ports "coppia/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client appends export rows to a spreadsheet shared with a service account.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	unlockSheet   string
	reportSheet   string

	mu      sync.Mutex
	headers map[string]bool // sheets whose header row is known to exist
}

var _ ports.Exporter = (*Client)(nil)

type Options struct {
	SpreadsheetID string
	UnlockSheet   string
	ReportSheet   string
}

// New creates a client. Callers supply authentication through opts.
func New(ctx context.Context, o Options, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if o.UnlockSheet == "" || o.ReportSheet == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: o.SpreadsheetID,
		unlockSheet:   o.UnlockSheet,
		reportSheet:   o.ReportSheet,
		headers:       make(map[string]bool),
	}, nil
}

// NewFromConfig creates a client authenticated with the configured service account.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	credentialsJSON, err := serviceAccountCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		UnlockSheet:   cfg.GoogleSheetName,
		ReportSheet:   cfg.GoogleReportSheetName,
	},
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// serviceAccountCredentials prefers inline JSON, then the configured file,
// then GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(ctx context.Context, cfg *config.Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.GoogleServiceAccountJSON)
	file := strings.TrimSpace(cfg.GoogleServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendUnlocks adds one row per event to the achievements sheet.
func (c *Client) AppendUnlocks(ctx context.Context, events []achievements.UnlockEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := c.appendRows(ctx, c.unlockSheet, ports.UnlockHeader, ports.UnlockRows(events)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Exported achievement unlocks", "sheet", c.unlockSheet, "count", len(events))
	return nil
}

// WriteBudgetReport appends the category rows and total row of summary to the
// report sheet. Earlier exports of the same period are kept.
func (c *Client) WriteBudgetReport(ctx context.Context, userID string, summary finance.BudgetSummary) error {
	rows := ports.ReportRows(userID, summary)
	if err := c.appendRows(ctx, c.reportSheet, ports.ReportHeader, rows); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Exported budget report", "sheet", c.reportSheet, "user_id", userID, "period", summary.Period.String(), "rows", len(rows))
	return nil
}

func (c *Client) appendRows(ctx context.Context, sheet string, header []string, rows [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureHeader(ctx, sheet, header); err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A:%s", sheet, columnName(len(header)))
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	return nil
}

// ensureHeader writes header into row 1 when the sheet is empty.
func (c *Client) ensureHeader(ctx context.Context, sheet string, header []string) error {
	c.mu.Lock()
	done := c.headers[sheet]
	c.mu.Unlock()
	if done {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:%s1", sheet, columnName(len(header)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		vr := &gsheet.ValueRange{Values: toValues([][]string{header})}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", sheet, err)
		}
	}

	c.mu.Lock()
	c.headers[sheet] = true
	c.mu.Unlock()
	return nil
}

func toValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

// columnName returns the A1 letter of the n-th column (1-based, up to ZZ).
func columnName(n int) string {
	if n <= 26 {
		return string(rune('A' + n - 1))
	}
	return string(rune('A'+(n-1)/26-1)) + string(rune('A'+(n-1)%26))
}
