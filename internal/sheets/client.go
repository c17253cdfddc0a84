// Package sheets reads Google Forms response sheets so organizers can
// reconcile external registrations with the form submissions.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// ErrNotConfigured is returned when no service account is available.
var ErrNotConfigured = errors.New("google sheets import is not configured")

// DefaultRange covers the columns a form response sheet uses.
const DefaultRange = "A:Z"

type Client struct {
	srv *sheetsv4.Service
}

// New builds a read-only Sheets client from a service account file.
func New(ctx context.Context, serviceAccountJSONPath string) (*Client, error) {
	if serviceAccountJSONPath == "" {
		return nil, ErrNotConfigured
	}
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv}, nil
}

// FormEmails returns the distinct email addresses found in a response
// sheet.  spreadsheetID may carry an explicit range as "id!Sheet1!A:F".
func (c *Client) FormEmails(ctx context.Context, spreadsheetID string) ([]string, error) {
	id, rng := splitRange(spreadsheetID)
	resp, err := c.srv.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "read sheet")
	}
	return ExtractEmails(resp.Values), nil
}

func splitRange(ref string) (string, string) {
	if i := strings.Index(ref, "!"); i > 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, DefaultRange
}

// ExtractEmails finds the email column from the header row (the first
// header containing "email") and returns its distinct, lower-cased values.
// Without a matching header every cell that looks like an address is used.
func ExtractEmails(values [][]interface{}) []string {
	if len(values) == 0 {
		return nil
	}
	col := -1
	for i, h := range values[0] {
		if strings.Contains(strings.ToLower(fmt.Sprint(h)), "email") {
			col = i
			break
		}
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	add := func(v interface{}) {
		s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
		if !looksLikeEmail(s) || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	rows := values
	if col >= 0 {
		rows = values[1:]
	}
	for _, row := range rows {
		if col >= 0 {
			if col < len(row) {
				add(row[col])
			}
			continue
		}
		for _, cell := range row {
			add(cell)
		}
	}
	return out
}

func looksLikeEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " ,;") && strings.Contains(s[at:], ".")
}
