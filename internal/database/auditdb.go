package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/socaudit/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "socaudit.db"

// storedTimeLayout is fixed-width so that stored times sort as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditDB provides SQLite-based storage for audit runs.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the AuditDB in dbDir.
// With CreateIfNotExists unset, a missing database is an error.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run collect first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		host TEXT NOT NULL,
		user_name TEXT,
		provider TEXT,
		model TEXT,
		collected_at TEXT NOT NULL,
		report_path TEXT,
		snapshot_path TEXT,
		html_path TEXT,
		final_score REAL,
		score_json TEXT,
		ai_error TEXT,
		report_md TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audits_host ON audits(host);
	CREATE INDEX IF NOT EXISTS idx_audits_collected ON audits(collected_at);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAudit stores a run. An empty RunID is filled with a new UUID and
// a zero CollectedAt with the current time. rec.ID is set on success.
func (adb *AuditDB) SaveAudit(ctx context.Context, rec *model.AuditRecord) error {
	if rec == nil {
		return errors.New("audit record is nil")
	}
	if rec.Host == "" {
		return errors.New("audit record has no host")
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.CollectedAt.IsZero() {
		rec.CollectedAt = time.Now()
	}

	scoreJSON, err := json.Marshal(rec.Score)
	if err != nil {
		return fmt.Errorf("failed to serialize score: %w", err)
	}

	query := `
	INSERT INTO audits (run_id, host, user_name, provider, model, collected_at,
		report_path, snapshot_path, html_path, final_score, score_json, ai_error, report_md)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := adb.db.ExecContext(ctx, query,
		rec.RunID,
		rec.Host,
		rec.User,
		rec.Provider,
		rec.Model,
		rec.CollectedAt.UTC().Format(storedTimeLayout),
		rec.ReportPath,
		rec.SnapshotPath,
		rec.HTMLPath,
		rec.Score.FinalScore,
		string(scoreJSON),
		rec.AIError,
		rec.Report,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read audit id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListHosts returns the hosts that have at least one audit, sorted by name.
func (adb *AuditDB) ListHosts(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT host FROM audits ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}

	return hosts, rows.Err()
}

const selectColumns = `
	SELECT id, run_id, host, user_name, provider, model, collected_at,
		report_path, snapshot_path, html_path, score_json, ai_error, report_md
	FROM audits
`

// GetAuditHistory returns every audit of host, newest first.
func (adb *AuditDB) GetAuditHistory(ctx context.Context, host string) ([]model.AuditRecord, error) {
	return adb.query(ctx, selectColumns+`WHERE host = ? ORDER BY collected_at DESC, id DESC`, host)
}

// GetLatestAudits returns at most n audits of host, newest first.
// n <= 0 returns the whole history.
func (adb *AuditDB) GetLatestAudits(ctx context.Context, host string, n int) ([]model.AuditRecord, error) {
	if n <= 0 {
		return adb.GetAuditHistory(ctx, host)
	}
	return adb.query(ctx, selectColumns+`WHERE host = ? ORDER BY collected_at DESC, id DESC LIMIT ?`, host, n)
}

// GetAuditsSince returns the audits of host collected at or after since, newest first.
func (adb *AuditDB) GetAuditsSince(ctx context.Context, host string, since time.Time) ([]model.AuditRecord, error) {
	return adb.query(ctx,
		selectColumns+`WHERE host = ? AND collected_at >= ? ORDER BY collected_at DESC, id DESC`,
		host, since.UTC().Format(storedTimeLayout))
}

// GetAuditByID returns one audit, or nil when the id does not exist.
func (adb *AuditDB) GetAuditByID(ctx context.Context, id int64) (*model.AuditRecord, error) {
	records, err := adb.query(ctx, selectColumns+`WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// query runs a select over selectColumns and scans the rows.
func (adb *AuditDB) query(ctx context.Context, query string, args ...any) ([]model.AuditRecord, error) {
	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audits: %w", err)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var (
			rec                                model.AuditRecord
			collectedAt                        string
			user, provider, modelName          sql.NullString
			reportPath, snapshotPath, htmlPath sql.NullString
			scoreJSON, aiError, reportMD       sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Host, &user, &provider, &modelName, &collectedAt,
			&reportPath, &snapshotPath, &htmlPath, &scoreJSON, &aiError, &reportMD); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}

		rec.User = user.String
		rec.Provider = provider.String
		rec.Model = modelName.String
		rec.CollectedAt = parseTimestamp(collectedAt)
		rec.ReportPath = reportPath.String
		rec.SnapshotPath = snapshotPath.String
		rec.HTMLPath = htmlPath.String
		rec.AIError = aiError.String
		rec.Report = reportMD.String

		rec.Score.SelfGradeScore = model.NoGrade
		if scoreJSON.Valid && scoreJSON.String != "" {
			if err := json.Unmarshal([]byte(scoreJSON.String), &rec.Score); err != nil {
				return nil, fmt.Errorf("failed to parse score of audit %d: %w", rec.ID, err)
			}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
