package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	MarketDataSheet  = "MarketData"
	SubscribersSheet = "Subscribers"
)

// Client доступ к таблице Google Sheets сервисным аккаунтом.
type Client struct {
	srv           *sheets.Service
	spreadsheetID string
}

func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	const op = "sheet.NewClient"

	c, err := newClient(ctx, spreadsheetID,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func newClient(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// Read все значения листа, первая строка заголовки.
func (c *Client) Read(ctx context.Context, sheetName string) ([][]any, error) {
	const op = "sheet.Client.Read"

	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheetName).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, sheetName, err)
	}
	return resp.Values, nil
}

// Write очищает лист и записывает значения с A1.
func (c *Client) Write(ctx context.Context, sheetName string, values [][]any) error {
	const op = "sheet.Client.Write"

	_, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%s: clear %s: %w", op, sheetName, err)
	}

	_, err = c.srv.Spreadsheets.Values.Update(c.spreadsheetID, sheetName+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%s: update %s: %w", op, sheetName, err)
	}
	return nil
}
