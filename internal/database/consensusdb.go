package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tagquorum/tagquorum/internal/model"
)

// ConsensusDB provides SQLite-based storage for consensus run history.
// It manages connection pooling and provides methods for saving and
// querying runs.
//
// Design decision: We use a single database file for all tasks rather than
// one per task. Task UUIDs index the runs, and a shared file keeps the
// history command's cross-task queries simple.
type ConsensusDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ConsensusDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ConsensusDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*ConsensusDB, error) {
	dbPath := filepath.Join(dbDir, "tagquorum.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer; multiple readers go through WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &ConsensusDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *ConsensusDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *ConsensusDB) createTables() error {
	schema := `
	-- Consensus runs store one complete result per processing invocation
	CREATE TABLE IF NOT EXISTS consensus_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_uuid TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		answer_mode INTEGER NOT NULL DEFAULT 0,
		annotation_count INTEGER NOT NULL DEFAULT 0,
		dropped_count INTEGER NOT NULL DEFAULT 0,
		topic_count INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		article_sha256 TEXT,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_task ON consensus_runs(task_uuid);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON consensus_runs(timestamp);

	-- Flattened output rows for direct SQL inspection and export
	CREATE TABLE IF NOT EXISTS consensus_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES consensus_runs(id),
		start_pos INTEGER NOT NULL,
		end_pos INTEGER NOT NULL,
		target_text TEXT NOT NULL,
		topic_name TEXT NOT NULL,
		namespace TEXT NOT NULL,
		case_number INTEGER NOT NULL,
		article_sha256 TEXT NOT NULL,
		article_filename TEXT NOT NULL,
		task_uuid TEXT NOT NULL,
		contrib_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_rows_run ON consensus_rows(run_id);
	CREATE INDEX IF NOT EXISTS idx_rows_topic ON consensus_rows(topic_name);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun persists a task result with its rows and returns the run ID.
func (cdb *ConsensusDB) SaveRun(ctx context.Context, result *model.TaskResult) (int64, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO consensus_runs (task_uuid, answer_mode, annotation_count, dropped_count, topic_count, row_count, article_sha256, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.TaskUUID,
		boolToInt(result.AnswerMode),
		result.AnnotationCount,
		result.DroppedCount,
		result.TopicCount,
		len(result.Rows),
		result.ArticleSHA256,
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for i := range result.Rows {
		row := &result.Rows[i]

		var contribCount sql.NullInt64
		if row.Extra != nil {
			contribCount = sql.NullInt64{Int64: int64(row.Extra.ContribCount), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, `
		INSERT INTO consensus_rows (run_id, start_pos, end_pos, target_text, topic_name, namespace, case_number, article_sha256, article_filename, task_uuid, contrib_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			row.StartPos,
			row.EndPos,
			row.TargetText,
			row.TopicName,
			row.Namespace,
			row.CaseNumber,
			row.ArticleSHA256,
			row.ArticleFilename,
			row.TaskUUID,
			contribCount,
		); err != nil {
			return 0, fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full result.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// TaskUUID is the processed task.
	TaskUUID string

	// Timestamp is when the run was performed.
	Timestamp time.Time

	// AnswerMode is true if the run used answer-consensus extraction.
	AnswerMode bool

	// AnnotationCount is the number of annotations read from the batch.
	AnnotationCount int

	// TopicCount is the number of distinct surviving topics.
	TopicCount int

	// RowCount is the number of consensus rows produced.
	RowCount int
}

// GetRunHistory retrieves run metadata for a task, newest first.
func (cdb *ConsensusDB) GetRunHistory(ctx context.Context, taskUUID string) ([]RunMetadata, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, task_uuid, timestamp, answer_mode, annotation_count, topic_count, row_count
	FROM consensus_runs
	WHERE task_uuid = ?
	ORDER BY timestamp DESC, id DESC`, taskUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		var answerMode int

		if err := rows.Scan(&meta.ID, &meta.TaskUUID, &timestamp, &answerMode,
			&meta.AnnotationCount, &meta.TopicCount, &meta.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.AnswerMode = answerMode != 0
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRunByID retrieves a full task result by its database ID.
// Returns nil without error if the run does not exist.
func (cdb *ConsensusDB) GetRunByID(ctx context.Context, id int64) (*model.TaskResult, error) {
	var resultJSON string
	err := cdb.db.QueryRowContext(ctx,
		`SELECT result_json FROM consensus_runs WHERE id = ?`, id).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var result model.TaskResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}

	return &result, nil
}

// GetLatestRuns retrieves up to limit most recent full results for a task,
// newest first. Malformed stored results are skipped.
func (cdb *ConsensusDB) GetLatestRuns(ctx context.Context, taskUUID string, limit int) ([]*model.TaskResult, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT result_json FROM consensus_runs
	WHERE task_uuid = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?`, taskUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var results []*model.TaskResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var result model.TaskResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			continue // Skip malformed results
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}

// ListTasks returns the distinct task UUIDs present in the database.
func (cdb *ConsensusDB) ListTasks(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT DISTINCT task_uuid FROM consensus_runs
	ORDER BY task_uuid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []string
	for rows.Next() {
		var task string
		if err := rows.Scan(&task); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// boolToInt converts a bool to the 0/1 representation SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
