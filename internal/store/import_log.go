package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ImportLog 导入日志记录
type ImportLog struct {
	ID           int64      `json:"id"`
	Filename     string     `json:"filename"`
	FileSize     int64      `json:"fileSize"`
	FileHash     string     `json:"fileHash"`
	Mode         string     `json:"mode"`
	TotalRows    int        `json:"totalRows"`
	SkippedRows  int        `json:"skippedRows"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Errors       int        `json:"errors"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// ImportLogResult 导入完成时写回的统计
type ImportLogResult struct {
	TotalRows    int
	SkippedRows  int
	Created      int
	Updated      int
	Errors       int
	Status       string // success/partial/failed
	ErrorMessage string
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(ctx context.Context, filename string, fileSize int64, fileHash, mode string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (filename, file_size, file_hash, mode, status, started_at)
		VALUES (?, ?, ?, ?, 'processing', ?)
	`, filename, fileSize, fileHash, mode, nowFunc().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(ctx context.Context, id int64, r ImportLogResult) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			total_rows = ?,
			skipped_rows = ?,
			created_count = ?,
			updated_count = ?,
			error_count = ?,
			status = ?,
			error_message = ?,
			completed_at = ?
		WHERE id = ?
	`, r.TotalRows, r.SkippedRows, r.Created, r.Updated, r.Errors, r.Status, r.ErrorMessage, nowFunc().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// LastImport 最近一次已完成的导入，没有时返回 nil, nil
func (s *Store) LastImport(ctx context.Context) (*ImportLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, file_size, file_hash, mode, total_rows, skipped_rows,
			created_count, updated_count, error_count, status, error_message,
			started_at, completed_at
		FROM import_logs
		WHERE completed_at IS NOT NULL
		ORDER BY id DESC
		LIMIT 1
	`)

	var (
		l         ImportLog
		completed sql.NullTime
	)
	err := row.Scan(&l.ID, &l.Filename, &l.FileSize, &l.FileHash, &l.Mode, &l.TotalRows, &l.SkippedRows,
		&l.Created, &l.Updated, &l.Errors, &l.Status, &l.ErrorMessage, &l.StartedAt, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last import: %w", err)
	}
	if completed.Valid {
		l.CompletedAt = &completed.Time
	}
	return &l, nil
}

// FindImportByHash 查找同一文件内容此前的导入记录
func (s *Store) FindImportByHash(ctx context.Context, fileHash string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM import_logs WHERE file_hash = ? AND status != 'failed' ORDER BY id DESC LIMIT 1",
		fileHash).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query import log: %w", err)
	}
	return id, true, nil
}
