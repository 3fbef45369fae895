// Package gsheets mirrors recomputed revenue aggregates to a Google
// spreadsheet. One row per user and year: user ID, year, revenue, and
// the refresh timestamp.
package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"microcompta/internal/config"
	"microcompta/internal/worker"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ worker.RevenueMirror = (*Client)(nil)

// NewClient builds a Sheets client from the OAuth client and token in
// the application config.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing Google spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.GoogleSheetName)
	if sheetName == "" {
		sheetName = "Revenus"
	}

	clientJSON, err := readCredential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	tokenJSON, err := readCredential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauthCfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func readCredential(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("neither inline JSON nor file provided")
	}
}

// MirrorRevenue upserts the row for (userID, year). Rows are keyed by
// columns A and B; existing rows are updated in place, new users are
// appended.
func (c *Client) MirrorRevenue(ctx context.Context, userID string, year int, revenue decimal.Decimal) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:B", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	row := c.findRow(resp.Values, userID, year)
	if row == 0 {
		row = len(resp.Values) + 1
	}

	values := &gsheet.ValueRange{Values: [][]any{{
		userID,
		year,
		revenue.InexactFloat64(),
		time.Now().UTC().Format(time.RFC3339),
	}}}
	target := fmt.Sprintf("%s!A%d:D%d", c.sheetName, row, row)

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, values).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", target, err)
	}
	return nil
}

// findRow returns the 1-based row matching the user and year, or 0.
func (c *Client) findRow(rows [][]any, userID string, year int) int {
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) != userID {
			continue
		}
		y, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(row[1])))
		if err != nil || y != year {
			continue
		}
		return i + 1
	}
	return 0
}
