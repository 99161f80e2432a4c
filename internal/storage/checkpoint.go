package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/eling/internal/model"
)

// CheckpointManager keeps whole-file snapshots of the ledger in a
// "checkpoints" directory beside it, so a delete or an import can be undone.
type CheckpointManager struct {
	db      *sql.DB
	dbPath  string
	dir     string
	maxAuto int
}

// CheckpointMetadata is written next to each snapshot as <id>.meta.json.
type CheckpointMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	TotalBalance  string         `json:"total_balance"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// CheckpointInfo summarizes a snapshot for listing.
type CheckpointInfo struct {
	CreatedAt     time.Time
	TotalBalance  decimal.Decimal
	ID            string
	Description   string
	FileSize      int64
	Accounts      int
	Categories    int
	Transactions  int
	Rules         int
	SchemaVersion int
	IsAuto        bool
}

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrCheckpointTooNew    = errors.New("checkpoint was written by a newer schema")
	ErrInvalidCheckpointID = errors.New("invalid checkpoint id: cannot contain path separators")
	ErrInMemoryDatabase    = errors.New("in-memory databases cannot be checkpointed")
)

// DefaultMaxAutoCheckpoints is how many automatic checkpoints survive pruning.
const DefaultMaxAutoCheckpoints = 5

// countedTables are the ledger tables whose sizes go into the metadata.
var countedTables = []string{"accounts", "categories", "transactions", "pattern_rules"}

// NewCheckpointManager prepares the checkpoints directory for the ledger at dbPath.
func NewCheckpointManager(db *sql.DB, dbPath string) (*CheckpointManager, error) {
	if isMemoryPath(dbPath) {
		return nil, ErrInMemoryDatabase
	}

	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dir := filepath.Join(filepath.Dir(absPath), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{db: db, dbPath: absPath, dir: dir, maxAuto: DefaultMaxAutoCheckpoints}, nil
}

// SetMaxAuto changes how many automatic checkpoints are kept. Values below 1 are ignored.
func (cm *CheckpointManager) SetMaxAuto(n int) {
	if n > 0 {
		cm.maxAuto = n
	}
}

// Create snapshots the ledger under tag; an empty tag gets a timestamped name.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + time.Now().Format("2006-01-02-1504")
	}
	return cm.snapshot(ctx, tag, description, false)
}

// AutoCheckpoint snapshots the ledger before operation and prunes automatic
// checkpoints beyond the configured maximum. Manual ones are never pruned.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, operation string) (*CheckpointInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", operation, time.Now().Format("2006-01-02-150405.000"))
	info, err := cm.snapshot(ctx, tag, "Automatic checkpoint before "+operation, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}
	if err := cm.prune(ctx); err != nil {
		slog.Warn("failed to prune automatic checkpoints", "error", err)
	}
	return info, nil
}

func (cm *CheckpointManager) snapshot(ctx context.Context, id, description string, isAuto bool) (*CheckpointInfo, error) {
	if err := validateCheckpointID(id); err != nil {
		return nil, err
	}
	dest := cm.snapshotPath(id)
	if _, err := os.Stat(dest); err == nil {
		return nil, ErrCheckpointExists
	}

	meta := CheckpointMetadata{
		ID:          id,
		CreatedAt:   time.Now(),
		Description: description,
		IsAuto:      isAuto,
	}
	if err := cm.describeLedger(ctx, &meta); err != nil {
		return nil, err
	}

	if err := cm.vacuumInto(ctx, dest); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}
	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}
	meta.FileSize = stat.Size()

	if err := writeJSONAtomic(cm.metadataPath(id), meta); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove snapshot without metadata", "file", dest, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}
	if err := cm.recordInDB(ctx, meta); err != nil {
		// The JSON file is authoritative; the table only mirrors it.
		slog.Warn("failed to record checkpoint in database", "id", id, "error", err)
	}

	slog.Info("created checkpoint", "id", id, "auto", isAuto, "size", meta.FileSize,
		"transactions", meta.RowCounts["transactions"])
	info := meta.info()
	return &info, nil
}

// describeLedger fills the schema version, row counts and the sum of every
// cached account balance.
func (cm *CheckpointManager) describeLedger(ctx context.Context, meta *CheckpointMetadata) error {
	version, err := schemaVersion(ctx, cm.db)
	if err != nil {
		return err
	}
	meta.SchemaVersion = version

	meta.RowCounts = make(map[string]int, len(countedTables))
	for _, table := range countedTables {
		var n int
		// #nosec G202 - table names come from countedTables
		if err := cm.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			slog.Debug("failed to count rows", "table", table, "error", err)
		}
		meta.RowCounts[table] = n
	}

	total, err := sumBalances(ctx, cm.db)
	if err != nil {
		return err
	}
	meta.TotalBalance = total.String()
	return nil
}

func sumBalances(ctx context.Context, q querier) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `SELECT balance FROM accounts`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balances: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var balance decimal.Decimal
		if err := rows.Scan(&balance); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan balance: %w", err)
		}
		total = total.Add(balance)
	}
	return total, rows.Err()
}

// List returns every checkpoint, newest first. Unreadable metadata is skipped.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var infos []CheckpointInfo
	for _, entry := range entries {
		id, ok := strings.CutSuffix(entry.Name(), ".meta.json")
		if entry.IsDir() || !ok {
			continue
		}
		meta, err := cm.readMetadata(id)
		if err != nil {
			slog.Debug("skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, meta.info())
	}

	slices.SortFunc(infos, func(a, b CheckpointInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return infos, nil
}

// GetCheckpointInfo returns the metadata of one checkpoint.
func (cm *CheckpointManager) GetCheckpointInfo(_ context.Context, id string) (*CheckpointInfo, error) {
	if err := validateCheckpointID(id); err != nil {
		return nil, err
	}
	meta, err := cm.readMetadata(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	info := meta.info()
	return &info, nil
}

// Restore swaps the ledger file for a checkpoint. The snapshot must pass
// SQLite's integrity check, hold the Cash account and not be newer than this
// build's schema. The manager's database handle is closed; reopen the storage
// and run Migrate afterwards.
func (cm *CheckpointManager) Restore(ctx context.Context, id string) error {
	src, err := cm.existingSnapshot(id)
	if err != nil {
		return err
	}
	if _, err := cm.readMetadata(id); err != nil {
		return fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	if err := verifySnapshot(ctx, src); err != nil {
		return err
	}

	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		slog.Warn("failed to checkpoint WAL before restore", "error", err)
	}
	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	rollback := cm.dbPath + ".restore-backup"
	if err := copyFile(cm.dbPath, rollback); err != nil {
		return fmt.Errorf("failed to backup current database: %w", err)
	}
	if err := copyFile(src, cm.dbPath); err != nil {
		if undoErr := copyFile(rollback, cm.dbPath); undoErr != nil {
			slog.Error("failed to put the previous ledger back", "error", undoErr)
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}

	// WAL and SHM files of the replaced ledger must not be replayed onto the snapshot.
	for _, sidecar := range []string{cm.dbPath + "-wal", cm.dbPath + "-shm", rollback} {
		if err := os.Remove(sidecar); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove file after restore", "file", sidecar, "error", err)
		}
	}

	slog.Info("restored checkpoint", "id", id)
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(ctx context.Context, id string) error {
	path, err := cm.existingSnapshot(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := os.Remove(cm.metadataPath(id)); err != nil {
		slog.Debug("failed to remove metadata file", "id", id, "error", err)
	}
	if _, err := cm.db.ExecContext(ctx, "DELETE FROM checkpoint_metadata WHERE id = ?", id); err != nil {
		slog.Debug("failed to remove checkpoint row", "id", id, "error", err)
	}
	return nil
}

// existingSnapshot validates id and returns the path of its snapshot file.
func (cm *CheckpointManager) existingSnapshot(id string) (string, error) {
	if err := validateCheckpointID(id); err != nil {
		return "", err
	}
	path := cm.snapshotPath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrCheckpointNotFound
		}
		return "", fmt.Errorf("failed to access checkpoint: %w", err)
	}
	return path, nil
}

func (m CheckpointMetadata) info() CheckpointInfo {
	total, err := decimal.NewFromString(m.TotalBalance)
	if err != nil {
		total = decimal.Zero
	}
	return CheckpointInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		TotalBalance:  total,
		FileSize:      m.FileSize,
		Accounts:      m.RowCounts["accounts"],
		Categories:    m.RowCounts["categories"],
		Transactions:  m.RowCounts["transactions"],
		Rules:         m.RowCounts["pattern_rules"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

func validateCheckpointID(id string) error {
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidCheckpointID
	}
	return nil
}

func (cm *CheckpointManager) snapshotPath(id string) string {
	return filepath.Join(cm.dir, id+".db")
}

func (cm *CheckpointManager) metadataPath(id string) string {
	return filepath.Join(cm.dir, id+".meta.json")
}

// vacuumInto writes a compacted copy of the ledger to dest, falling back to a
// plain file copy when VACUUM INTO is unavailable.
func (cm *CheckpointManager) vacuumInto(ctx context.Context, dest string) error {
	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	if !filepath.IsAbs(dest) || strings.ContainsAny(dest, `'";`) {
		return fmt.Errorf("invalid snapshot path %q", dest)
	}

	// #nosec G201 - dest is validated above
	if _, err := cm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying the file instead", "error", err)
		return copyFile(cm.dbPath, dest)
	}
	return nil
}

func (cm *CheckpointManager) readMetadata(id string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(cm.metadataPath(id))
	if err != nil {
		return nil, err
	}
	var meta CheckpointMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (cm *CheckpointManager) recordInDB(ctx context.Context, meta CheckpointMetadata) error {
	counts, err := json.Marshal(meta.RowCounts)
	if err != nil {
		return err
	}
	_, err = cm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoint_metadata
		(id, created_at, description, file_size, row_counts, schema_version, is_auto)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.CreatedAt, meta.Description, meta.FileSize, string(counts), meta.SchemaVersion, meta.IsAuto)
	return err
}

func (cm *CheckpointManager) prune(ctx context.Context) error {
	infos, err := cm.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, info := range infos {
		if !info.IsAuto {
			continue
		}
		kept++
		if kept <= cm.maxAuto {
			continue
		}
		if err := cm.Delete(ctx, info.ID); err != nil {
			slog.Debug("failed to prune auto-checkpoint", "id", info.ID, "error", err)
		}
	}
	return nil
}

// verifySnapshot opens a snapshot read-only and checks that it is an intact
// ledger this build can migrate.
func verifySnapshot(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close snapshot", "error", err)
		}
	}()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrCheckpointCorrupted, result)
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}
	if version > ExpectedSchemaVersion {
		return fmt.Errorf("%w: version %d, this build supports %d", ErrCheckpointTooNew, version, ExpectedSchemaVersion)
	}

	var cash string
	if err := db.QueryRowContext(ctx, `SELECT name FROM accounts WHERE id = ?`, model.CashAccountID).Scan(&cash); err != nil {
		return fmt.Errorf("%w: no Cash account: %w", ErrCheckpointCorrupted, err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// copyFile copies src over dst through a temporary file and a rename.
func copyFile(src, dst string) error {
	// #nosec G304 - paths come from the manager
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	// #nosec G304 - paths come from the manager
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
