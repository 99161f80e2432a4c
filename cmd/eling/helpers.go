package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/eling/internal/common"
	"github.com/Veraticus/eling/internal/config"
	"github.com/Veraticus/eling/internal/model"
	"github.com/Veraticus/eling/internal/storage"
)

// initStorage opens the ledger with proper path expansion and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	return storage.Open(ctx, config.DatabasePath(viper.GetViper()))
}

// newCheckpointManager creates a manager honoring checkpoint.max_auto.
func newCheckpointManager(store *storage.SQLiteStorage) (*storage.CheckpointManager, error) {
	manager, err := store.NewCheckpointManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	manager.SetMaxAuto(viper.GetInt(config.KeyCheckpointMaxAuto))
	return manager, nil
}

// autoCheckpoint snapshots the ledger before a destructive operation when
// checkpoint.auto is on. Failure to checkpoint is logged, not fatal.
func autoCheckpoint(ctx context.Context, store *storage.SQLiteStorage, operation string) {
	if !viper.GetBool(config.KeyCheckpointAuto) {
		return
	}

	manager, err := newCheckpointManager(store)
	if err != nil {
		slog.Warn("skipping automatic checkpoint", "operation", operation, "error", err)
		return
	}

	info, err := manager.AutoCheckpoint(ctx, operation)
	if err != nil {
		common.LogError(err, "automatic checkpoint failed", common.Fields{"operation": operation})
		return
	}
	slog.Debug("created automatic checkpoint", "id", info.ID)
}

func currency() string {
	return viper.GetString(config.KeyDisplayCurrency)
}

func dateFormat() string {
	if f := viper.GetString(config.KeyDisplayDateFormat); f != "" {
		return f
	}
	return model.DateLayout
}

// parseAmount reads a user-entered amount written either way round:
// "2.600.000" and "2,600,000" are both two million six hundred thousand, and
// "1.234,50" and "1,234.50" both have fifty cents. A single separator followed
// by exactly three digits is a thousands separator.
func parseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp")
	s = strings.TrimSpace(s)

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		thousands, point := ",", "."
		if comma > dot {
			thousands, point = ".", ","
		}
		s = strings.ReplaceAll(s, thousands, "")
		s = strings.Replace(s, point, ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dot >= 0 && len(s)-dot-1 == 3:
		s = strings.Replace(s, ".", "", 1)
	case comma >= 0 && len(s)-comma-1 == 3:
		s = strings.Replace(s, ",", "", 1)
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("%q is not an amount", raw), err)
	}
	return amount, nil
}

// parseWhen combines a date flag and a time flag into a local time. Empty
// values fall back to now.
func parseWhen(date, clock string, now time.Time) (time.Time, error) {
	day := now
	if date != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, date, now.Location())
		if err != nil {
			return time.Time{}, common.NewUserError(fmt.Sprintf("date %q must look like 2024-05-01", date), err)
		}
		day = parsed
	}

	hour, minute := now.Hour(), now.Minute()
	if clock != "" {
		parsed, err := time.Parse(model.TimeLayout, clock)
		if err != nil {
			return time.Time{}, common.NewUserError(fmt.Sprintf("time %q must look like 15:04", clock), err)
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), nil
}

// periodFromFlags picks the summary period: a day, a month (YYYY-MM) or a year.
// With none set it is the current month.
func periodFromFlags(day, month string, year int, now time.Time) (model.Period, error) {
	set := 0
	for _, isSet := range []bool{day != "", month != "", year != 0} {
		if isSet {
			set++
		}
	}
	if set > 1 {
		return model.Period{}, common.NewUserError("use only one of --day, --month or --year", nil)
	}

	switch {
	case day != "":
		d, err := time.Parse(model.DateLayout, day)
		if err != nil {
			return model.Period{}, common.NewUserError(fmt.Sprintf("day %q must look like 2024-05-01", day), err)
		}
		return model.DayPeriod(d), nil
	case month != "":
		m, err := time.Parse("2006-01", month)
		if err != nil {
			return model.Period{}, common.NewUserError(fmt.Sprintf("month %q must look like 2024-05", month), err)
		}
		return model.MonthPeriod(m.Year(), m.Month()), nil
	case year != 0:
		return model.YearPeriod(year), nil
	default:
		return model.MonthPeriod(now.Year(), now.Month()), nil
	}
}
