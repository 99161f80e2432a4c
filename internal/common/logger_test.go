package common

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "Warning", want: slog.LevelWarn},
		{input: " DEBUG ", want: slog.LevelDebug},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerTo(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelInfo, "json"))

	LogInfo("recorded transaction", Fields{"account": "Cash"})
	LogDebug("hidden", nil)
	LogError(errors.New("boom"), "failed", Fields{"id": 7})

	out := buf.String()
	assert.Contains(t, out, `"msg":"recorded transaction"`)
	assert.Contains(t, out, `"account":"Cash"`)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"error":"boom"`)

	assert.ErrorIs(t, SetupLoggerTo(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}

func TestLogFieldsAreOrdered(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerTo(&buf, slog.LevelDebug, "console"))

	LogWarn("balance drift", Fields{"expected": "100", "account": "BCA", "cached": "90"})
	LogError(nil, "no cause", nil)

	line := buf.String()
	assert.Less(t, strings.Index(line, "account="), strings.Index(line, "cached="))
	assert.Less(t, strings.Index(line, "cached="), strings.Index(line, "expected="))
	assert.Contains(t, line, "no cause")
	assert.NotContains(t, line, "error=")
}
