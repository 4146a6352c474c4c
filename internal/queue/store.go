package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipperd/internal/config"
	"clipperd/internal/services"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database and ensures the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the job database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// NewJob inserts a pending job for a source URL with an immutable option
// snapshot.
func (s *Store) NewJob(ctx context.Context, url string, opts Options) (*Job, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "new job", "url must not be empty", nil)
	}

	optionsJSON, err := encodeOptions(opts)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, url, status, created_at, updated_at,
            progress_percent, stage_percent, options_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		url,
		StatusPending,
		timestamp,
		timestamp,
		0,
		0.0,
		optionsJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Unknown ids return (nil, nil);
// callers that need an error map the nil to services.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs in creation order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextForStatuses returns the oldest job matching any of the provided
// statuses, skipping the given job ids (jobs already claimed by a worker).
func (s *Store) NextForStatuses(ctx context.Context, excluding []string, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	args := make([]any, 0, len(statuses)+len(excluding))
	for _, status := range statuses {
		args = append(args, status)
	}
	if len(excluding) > 0 {
		query += ` AND id NOT IN (` + makePlaceholders(len(excluding)) + `)`
		for _, id := range excluding {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Update persists the full state of an existing job. It reports
// services.ErrNotFound when the row no longer exists so a deleted job is
// never resurrected by in-flight stage work.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET url = ?, status = ?, error_message = ?, updated_at = ?,
             progress_percent = ?, progress_stage = ?, stage_percent = ?, progress_message = ?,
             media_file = ?, transcript_file = ?, metadata_json = ?, options_json = ?,
             chapters_json = ?, selected_json = ?, clips_json = ?,
             stage_started_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.URL,
		job.Status,
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ProgressPercent,
		nullableString(job.ProgressStage),
		job.StagePercent,
		nullableString(job.ProgressMessage),
		nullableString(job.MediaFile),
		nullableString(job.TranscriptFile),
		nullableString(job.MetadataJSON),
		nullableString(job.OptionsJSON),
		nullableString(job.ChaptersJSON),
		nullableString(job.SelectedJSON),
		nullableString(job.ClipsJSON),
		nullableTime(job.StageStartedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, services.ErrNotFound)
	}
	return nil
}

// UpdateWith applies a mutator to a job inside a single transaction so the
// read-modify-write is atomic with respect to concurrent updaters.
func (s *Store) UpdateWith(ctx context.Context, id string, mutate func(*Job) error) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job for update: %w", err)
	}

	if err := mutate(job); err != nil {
		return nil, err
	}

	job.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(
		ctx,
		`UPDATE jobs
         SET url = ?, status = ?, error_message = ?, updated_at = ?,
             progress_percent = ?, progress_stage = ?, stage_percent = ?, progress_message = ?,
             media_file = ?, transcript_file = ?, metadata_json = ?, options_json = ?,
             chapters_json = ?, selected_json = ?, clips_json = ?,
             stage_started_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.URL,
		job.Status,
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ProgressPercent,
		nullableString(job.ProgressStage),
		job.StagePercent,
		nullableString(job.ProgressMessage),
		nullableString(job.MediaFile),
		nullableString(job.TranscriptFile),
		nullableString(job.MetadataJSON),
		nullableString(job.OptionsJSON),
		nullableString(job.ChaptersJSON),
		nullableString(job.SelectedJSON),
		nullableString(job.ClipsJSON),
		nullableTime(job.StageStartedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return job, nil
}

// Remove deletes a job row by identifier. Artifact cleanup on disk is the
// caller's responsibility.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const jobColumns = "id, url, status, error_message, created_at, updated_at, progress_percent, progress_stage, stage_percent, progress_message, media_file, transcript_file, metadata_json, options_json, chapters_json, selected_json, clips_json, stage_started_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		url             string
		statusStr       string
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		progressPercent sql.NullInt64
		progressStage   sql.NullString
		stagePercent    sql.NullFloat64
		progressMessage sql.NullString
		mediaFile       sql.NullString
		transcriptFile  sql.NullString
		metadata        sql.NullString
		options         sql.NullString
		chapters        sql.NullString
		selected        sql.NullString
		clips           sql.NullString
		stageStartedRaw sql.NullString
		heartbeatRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&url,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressPercent,
		&progressStage,
		&stagePercent,
		&progressMessage,
		&mediaFile,
		&transcriptFile,
		&metadata,
		&options,
		&chapters,
		&selected,
		&clips,
		&stageStartedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		URL:             url,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		ProgressPercent: int(progressPercent.Int64),
		ProgressStage:   progressStage.String,
		StagePercent:    stagePercent.Float64,
		ProgressMessage: progressMessage.String,
		MediaFile:       mediaFile.String,
		TranscriptFile:  transcriptFile.String,
		MetadataJSON:    metadata.String,
		OptionsJSON:     options.String,
		ChaptersJSON:    chapters.String,
		SelectedJSON:    selected.String,
		ClipsJSON:       clips.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if stageStartedRaw.Valid {
		if started, err := parseTimeString(stageStartedRaw.String); err == nil {
			job.StageStartedAt = &started
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	delay := busyRetryInitialBackoff
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		if execErr == nil || !isSQLiteBusy(execErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return res, execErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
