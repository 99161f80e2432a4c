package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain", input: "10000", expected: "10000"},
		{name: "dotted thousands", input: "2.600.000", expected: "2600000"},
		{name: "single dotted thousand", input: "25.000", expected: "25000"},
		{name: "comma thousands", input: "2,600,000", expected: "2600000"},
		{name: "single comma thousand", input: "1,500", expected: "1500"},
		{name: "decimal point", input: "1.5", expected: "1.5"},
		{name: "decimal comma", input: "12,75", expected: "12.75"},
		{name: "indonesian cents", input: "1.234,50", expected: "1234.5"},
		{name: "english cents", input: "1,234.50", expected: "1234.5"},
		{name: "currency prefix", input: "Rp 2.600.000", expected: "2600000"},
		{name: "surrounding space", input: "  8000 ", expected: "8000"},
		{name: "words", input: "sepuluh", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var userErr *common.UserError
				assert.ErrorAs(t, err, &userErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2024, time.May, 17, 14, 30, 45, 0, time.UTC)

	t.Run("defaults to now at minute precision", func(t *testing.T) {
		got, err := parseWhen("", "", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.May, 17, 14, 30, 0, 0, time.UTC), got)
	})

	t.Run("date keeps current time of day", func(t *testing.T) {
		got, err := parseWhen("2024-05-01", "", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.May, 1, 14, 30, 0, 0, time.UTC), got)
	})

	t.Run("date and time", func(t *testing.T) {
		got, err := parseWhen("2024-05-01", "09:05", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.May, 1, 9, 5, 0, 0, time.UTC), got)
	})

	t.Run("time only", func(t *testing.T) {
		got, err := parseWhen("", "07:00", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.May, 17, 7, 0, 0, 0, time.UTC), got)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := parseWhen("17/05/2024", "", now)
		assert.Error(t, err)
	})

	t.Run("bad time", func(t *testing.T) {
		_, err := parseWhen("", "7pm", now)
		assert.Error(t, err)
	})
}

func TestPeriodFromFlags(t *testing.T) {
	now := time.Date(2024, time.February, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		day     string
		month   string
		year    int
		want    model.Period
		wantErr bool
	}{
		{name: "default is current month", want: model.MonthPeriod(2024, time.February)},
		{name: "day", day: "2024-03-05", want: model.DayPeriod(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))},
		{name: "month", month: "2023-12", want: model.MonthPeriod(2023, time.December)},
		{name: "year", year: 2023, want: model.YearPeriod(2023)},
		{name: "day and month", day: "2024-03-05", month: "2024-03", wantErr: true},
		{name: "month and year", month: "2024-03", year: 2024, wantErr: true},
		{name: "bad month", month: "March", wantErr: true},
		{name: "bad day", day: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := periodFromFlags(tt.day, tt.month, tt.year, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "transaction")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = parseID("#7", "rule")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID(bad, "transaction")
		assert.ErrorContains(t, err, "transaction id", bad)
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{name: "success", err: nil, wantCode: 0},
		{
			name:     "not found is a warning",
			err:      fmt.Errorf("failed to delete transaction: %w", fmt.Errorf("transaction 9: %w", common.ErrNotFound)),
			wantCode: 0,
			wantText: "transaction 9",
		},
		{
			name:     "user error shows its message",
			err:      common.NewUserError("date must look like 2024-05-01", errors.New("parse failure")),
			wantCode: 1,
			wantText: "date must look like 2024-05-01",
		},
		{name: "other error", err: errors.New("disk full"), wantCode: 1, wantText: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.wantCode, reportError(&buf, tt.err))
			if tt.wantText == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.wantText)
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.0 KB", formatFileSize(1024))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2024, time.May, 17, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatRelativeTime(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 minute ago", formatRelativeTime(now.Add(-time.Minute), now))
	assert.Equal(t, "5 minutes ago", formatRelativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3 hours ago", formatRelativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "yesterday", formatRelativeTime(now.Add(-30*time.Hour), now))
	assert.Equal(t, "4 days ago", formatRelativeTime(now.Add(-4*24*time.Hour), now))
	assert.Equal(t, "2024-05-01 09:00", formatRelativeTime(time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC), now))
}
