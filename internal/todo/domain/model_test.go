package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDraftIsNeverCompleted(t *testing.T) {
	d := NewDraft("Book flights", time.Now())
	assert.False(t, d.Completed)
	assert.Equal(t, "Book flights", d.Text)
}

func TestRequireText(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"Groceries", false},
		{"  padded  ", false},
		{"", true},
		{"   \t\n", true},
	}
	for _, tt := range tests {
		err := RequireText("name", tt.value)
		if !tt.wantErr {
			assert.NoError(t, err, "value %q", tt.value)
			continue
		}
		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr), "value %q", tt.value)
		assert.Equal(t, "name", vErr.Field)
	}
}
