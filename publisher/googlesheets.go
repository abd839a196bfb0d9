package publisher

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheetStore implements RowStore against the Google Sheets values API.
type GoogleSheetStore struct {
	svc       *sheets.Service
	docID     string
	worksheet string
}

// NewGoogleSheetStore opens the configured document. With no credentials
// file, Application Default Credentials are used.
func NewGoogleSheetStore(ctx context.Context, docID, worksheet, credentialsFile string) (*GoogleSheetStore, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if worksheet == "" {
		worksheet = "posts"
	}
	return &GoogleSheetStore{svc: svc, docID: docID, worksheet: worksheet}, nil
}

// SlugRows reads the slug column (B) below the header and maps each slug to
// its sheet row.
func (g *GoogleSheetStore) SlugRows(ctx context.Context) (map[string]int, error) {
	rng := fmt.Sprintf("%s!B2:B", g.worksheet)
	resp, err := g.svc.Spreadsheets.Values.Get(g.docID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read slug column: %w", err)
	}

	rows := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		slug := fmt.Sprint(row[0])
		if slug == "" {
			continue
		}
		rows[slug] = i + 2 // +2: 1-based rows below the header
	}
	return rows, nil
}

// UpdateRow overwrites one full row in place.
func (g *GoogleSheetStore) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	rng := fmt.Sprintf("%s!A%d:I%d", g.worksheet, row, row)
	_, err := g.svc.Spreadsheets.Values.
		Update(g.docID, rng, &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet row: %w", err)
	}
	return nil
}

// AppendRow adds one row after the existing data.
func (g *GoogleSheetStore) AppendRow(ctx context.Context, values []interface{}) error {
	rng := fmt.Sprintf("%s!A1:I1", g.worksheet)
	_, err := g.svc.Spreadsheets.Values.
		Append(g.docID, rng, &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append sheet row: %w", err)
	}
	return nil
}
