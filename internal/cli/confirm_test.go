package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "yes", input: "y\n", expected: true},
		{name: "full yes with spaces", input: "  YES \n", expected: true},
		{name: "no", input: "n\n", expected: false},
		{name: "empty line", input: "\n", expected: false},
		{name: "end of input", input: "", expected: false},
		{name: "yes without newline", input: "y", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConfirmer(strings.NewReader(tt.input), &out)

			got, err := c.Confirm(context.Background(), "Delete account BCA?")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Contains(t, out.String(), "Delete account BCA? [y/N]")
		})
	}
}

func TestConfirmCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConfirmer(pr, io.Discard)
	_, err := c.Confirm(ctx, "Restore?")
	require.ErrorIs(t, err, ErrInputCancelled)
}
