package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEmailsUsesHeader(t *testing.T) {
	values := [][]interface{}{
		{"Timestamp", "Full name", "Email Address", "Backup contact"},
		{"2026/10/01 10:00", "Asha", "Asha@Example.edu ", "ravi@example.edu"},
		{"2026/10/01 10:05", "Ravi"},
		{"2026/10/01 10:07", "Asha again", "asha@example.edu"},
		{"2026/10/01 10:09", "Typo", "not-an-email"},
	}
	assert.Equal(t, []string{"asha@example.edu"}, ExtractEmails(values))
}

func TestExtractEmailsWithoutHeader(t *testing.T) {
	values := [][]interface{}{
		{"x@example.edu", "hello"},
		{"y@example.edu", "x@example.edu"},
	}
	assert.Equal(t, []string{"x@example.edu", "y@example.edu"}, ExtractEmails(values))
	assert.Nil(t, ExtractEmails(nil))
}

func TestSplitRange(t *testing.T) {
	id, rng := splitRange("abc123")
	assert.Equal(t, "abc123", id)
	assert.Equal(t, DefaultRange, rng)
	id, rng = splitRange("abc123!Form Responses 1!A:F")
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "Form Responses 1!A:F", rng)
}

func TestNewWithoutCredentials(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
