// Package google mirrors booking balances into a Google Spreadsheet, one
// worksheet per profile.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	applog "reservas/internal/log"
	ports "reservas/internal/sheets"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Worksheet columns: A booking id, B reservation number, C total ARS,
// D paid ARS, E balance ARS, F total USD, G paid USD, H balance USD.
var headerRow = []any{
	"Booking ID", "Reserva",
	"Total ARS", "Pagado ARS", "Saldo ARS",
	"Total USD", "Pagado USD", "Saldo USD",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet. Credentials come
// from the environment: either a service account (GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS) or an OAuth
// application config (GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)
// paired with the token saved by cmd/oauth-init (GOOGLE_OAUTH_TOKEN_JSON or
// GOOGLE_OAUTH_TOKEN_FILE, default token.json).
func New(ctx context.Context, spreadsheetID string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}

	opts, err := credentialOptions(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// credentialOptions resolves client options from the environment. Service
// account credentials win when both kinds are configured.
func credentialOptions(ctx context.Context) ([]goption.ClientOption, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(serviceAccountJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}

	httpClient, ok, err := oauthHTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client via GOOGLE_OAUTH_CLIENT_JSON/GOOGLE_OAUTH_CLIENT_FILE)")
	}
	return []goption.ClientOption{goption.WithHTTPClient(httpClient)}, nil
}

// oauthHTTPClient builds a self-refreshing HTTP client from the OAuth
// application config plus the saved user token. ok is false when no OAuth
// client is configured at all.
func oauthHTTPClient(ctx context.Context) (*http.Client, bool, error) {
	clientJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))

	var b []byte
	var err error
	switch {
	case clientJSON != "":
		b = []byte(clientJSON)
	case clientFile != "":
		b, err = os.ReadFile(clientFile)
		if err != nil {
			return nil, false, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, false, nil
	}

	cfg, err := oauthgoogle.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, false, fmt.Errorf("parse oauth client config: %w", err)
	}

	tok, err := loadOAuthToken()
	if err != nil {
		return nil, false, err
	}
	return cfg.Client(ctx, tok), true, nil
}

// loadOAuthToken reads the token written by cmd/oauth-init, from
// GOOGLE_OAUTH_TOKEN_JSON or from GOOGLE_OAUTH_TOKEN_FILE (default
// token.json).
func loadOAuthToken() (*oauth2.Token, error) {
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON")); raw != "" {
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(raw), &tok); err != nil {
			return nil, fmt.Errorf("parse oauth token: %w", err)
		}
		return &tok, nil
	}

	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("open oauth token file (run oauth-init first): %w", err)
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

func (c *Client) UpsertRow(ctx context.Context, profile string, row ports.BalanceRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if _, err := c.ensureWorksheet(ctx, profile); err != nil {
		return err
	}

	values := []any{
		row.BookingID,
		row.ReservationNumber,
		row.Totals.TotalARS.Units(),
		row.Totals.TotalPaidARS.Units(),
		row.Totals.BalanceARS.Units(),
		row.Totals.TotalUSD.Units(),
		row.Totals.TotalPaidUSD.Units(),
		row.Totals.BalanceUSD.Units(),
	}

	rowIndex, err := c.findRow(ctx, profile, row.BookingID)
	if err != nil {
		return err
	}

	if rowIndex > 0 {
		rng := fmt.Sprintf("%s!A%d:H%d", quoteSheet(profile), rowIndex, rowIndex)
		vr := &gsheet.ValueRange{Values: [][]any{values}}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d in %s: %w", rowIndex, profile, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:H", quoteSheet(profile))
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", profile, err)
	}
	return nil
}

func (c *Client) RemoveRow(ctx context.Context, profile, bookingID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetID, ok, err := c.lookupSheetID(ctx, profile)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	rowIndex, err := c.findRow(ctx, profile, bookingID)
	if err != nil {
		return err
	}
	if rowIndex <= 0 {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex - 1),
					EndIndex:   int64(rowIndex),
				},
			},
		}},
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d in %s: %w", rowIndex, profile, err)
	}
	return nil
}

func (c *Client) RemoveProfile(ctx context.Context, profile string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetID, ok, err := c.lookupSheetID(ctx, profile)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteSheet: &gsheet.DeleteSheetRequest{SheetId: sheetID},
		}},
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete worksheet %s: %w", profile, err)
	}
	slog.InfoContext(ctx, "Removed profile worksheet", applog.FieldProfile, profile)
	return nil
}

// lookupSheetID returns the sheet id for the profile's worksheet, or ok=false
// when the worksheet does not exist.
func (c *Client) lookupSheetID(ctx context.Context, profile string) (int64, bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == profile {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

// ensureWorksheet creates the profile's worksheet with a header row if it
// does not exist yet, and returns its sheet id.
func (c *Client) ensureWorksheet(ctx context.Context, profile string) (int64, error) {
	sheetID, ok, err := c.lookupSheetID(ctx, profile)
	if err != nil {
		return 0, err
	}
	if ok {
		return sheetID, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: profile},
			},
		}},
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add worksheet %s: %w", profile, err)
	}

	rng := fmt.Sprintf("%s!A1:H1", quoteSheet(profile))
	vr := &gsheet.ValueRange{Values: [][]any{headerRow}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write header in %s: %w", profile, err)
	}

	slog.InfoContext(ctx, "Created profile worksheet", applog.FieldProfile, profile)
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		return resp.Replies[0].AddSheet.Properties.SheetId, nil
	}
	return c.sheetIDOrZero(ctx, profile)
}

func (c *Client) sheetIDOrZero(ctx context.Context, profile string) (int64, error) {
	id, ok, err := c.lookupSheetID(ctx, profile)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("worksheet %s disappeared after creation", profile)
	}
	return id, nil
}

// findRow returns the 1-based row index holding the booking id in column A,
// or 0 when absent.
func (c *Client) findRow(ctx context.Context, profile, bookingID string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", quoteSheet(profile))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		// A missing worksheet reads as an error from the API; callers that
		// need the sheet create it first via ensureWorksheet.
		return 0, fmt.Errorf("read column A of %s: %w", profile, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == bookingID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// quoteSheet wraps a worksheet title in single quotes for A1 ranges, which
// profile names with spaces require.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
