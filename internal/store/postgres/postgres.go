// Package postgres 远端托管数据库（Postgres）上的记录存储
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rolmap/internal/model"
)

// pool 用到的 *pgxpool.Pool 方法子集，便于测试替换
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS properties (
	id                      TEXT PRIMARY KEY,
	roll_number             TEXT NOT NULL UNIQUE,
	title                   TEXT NOT NULL DEFAULT '',
	type                    TEXT NOT NULL DEFAULT '',
	price                   DOUBLE PRECISION NOT NULL DEFAULT 0,
	location                TEXT NOT NULL DEFAULT '',
	area                    DOUBLE PRECISION NOT NULL DEFAULT 0,
	coordinates             JSONB,
	image_url               TEXT NOT NULL DEFAULT '',
	features                JSONB NOT NULL DEFAULT '[]',
	status                  TEXT NOT NULL DEFAULT 'active',
	owner_name              TEXT NOT NULL DEFAULT '',
	owner_tax_id            TEXT NOT NULL DEFAULT '',
	postal_code             TEXT NOT NULL DEFAULT '',
	construction_area       DOUBLE PRECISION NOT NULL DEFAULT 0,
	land_valuation          DOUBLE PRECISION NOT NULL DEFAULT 0,
	construction_valuation  DOUBLE PRECISION NOT NULL DEFAULT 0,
	exempt_valuation        DOUBLE PRECISION NOT NULL DEFAULT 0,
	taxable_valuation       DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectColumns = `id, roll_number, title, type, price, location, area,
	coordinates, image_url, features, status, owner_name, owner_tax_id, postal_code,
	construction_area, land_valuation, construction_valuation,
	exempt_valuation, taxable_valuation, created_at, updated_at`

const insertSQL = `INSERT INTO properties (` + selectColumns + `) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13, $14,
	$15, $16, $17,
	$18, $19, $20, $21
)`

// Store 基于 pgxpool 的记录存储
type Store struct {
	pool pool
	now  func() time.Time
}

// New 连接 Postgres
func New(ctx context.Context, dsn string) (*Store, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{pool: p, now: time.Now}, nil
}

// EnsureSchema 创建 properties 表
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func rowArgs(r *row) []any {
	return []any{
		r.ID, r.RollNumber, r.Title, r.Type, r.Price, r.Location, r.Area,
		r.Coordinates, r.ImageURL, r.Features, r.Status, r.OwnerName, r.OwnerTaxID, r.PostalCode,
		r.ConstructionArea, r.LandValuation, r.ConstructionValuation,
		r.ExemptValuation, r.TaxableValuation, r.CreatedAt, r.UpdatedAt,
	}
}

func scanRow(sc pgx.Row) (*model.Property, error) {
	var r row
	err := sc.Scan(
		&r.ID, &r.RollNumber, &r.Title, &r.Type, &r.Price, &r.Location, &r.Area,
		&r.Coordinates, &r.ImageURL, &r.Features, &r.Status, &r.OwnerName, &r.OwnerTaxID, &r.PostalCode,
		&r.ConstructionArea, &r.LandValuation, &r.ConstructionValuation,
		&r.ExemptValuation, &r.TaxableValuation, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fromRow(&r)
}

// mapConstraint 唯一约束冲突 -> 领域错误
func mapConstraint(err error, rol string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", model.ErrDuplicateRollNumber, rol)
	}
	return err
}

func (s *Store) prepare(p *model.Property) (*row, error) {
	rec := p.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	return toRow(rec)
}

// GetAll 按创建时间返回全部记录
func (s *Store) GetAll(ctx context.Context) ([]*model.Property, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+selectColumns+" FROM properties ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	out := []*model.Property{}
	for rows.Next() {
		p, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return out, nil
}

// Get 按身份键获取记录
func (s *Store) Get(ctx context.Context, id string) (*model.Property, error) {
	p, err := scanRow(s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM properties WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// Create 新建记录
func (s *Store) Create(ctx context.Context, p *model.Property) (string, error) {
	r, err := s.prepare(p)
	if err != nil {
		return "", err
	}
	if _, err := s.pool.Exec(ctx, insertSQL, rowArgs(r)...); err != nil {
		return "", fmt.Errorf("failed to insert property: %w", mapConstraint(err, r.RollNumber))
	}
	return r.ID, nil
}

// Update 覆盖记录的可写字段
func (s *Store) Update(ctx context.Context, id string, p *model.Property) error {
	rec := p.Clone()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now()
	}
	r, err := toRow(rec)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE properties SET
			roll_number = $2, title = $3, type = $4, price = $5, location = $6, area = $7,
			coordinates = $8, image_url = $9, owner_name = $10, owner_tax_id = $11, postal_code = $12,
			construction_area = $13, land_valuation = $14, construction_valuation = $15,
			exempt_valuation = $16, taxable_valuation = $17, updated_at = $18
		WHERE id = $1
	`,
		id, r.RollNumber, r.Title, r.Type, r.Price, r.Location, r.Area,
		r.Coordinates, r.ImageURL, r.OwnerName, r.OwnerTaxID, r.PostalCode,
		r.ConstructionArea, r.LandValuation, r.ConstructionValuation,
		r.ExemptValuation, r.TaxableValuation, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", mapConstraint(err, r.RollNumber))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete 删除记录
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM properties WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// FindByRollNumber 按 ROL 精确查找，不存在返回 nil, nil
func (s *Store) FindByRollNumber(ctx context.Context, rol string) (*model.Property, error) {
	p, err := scanRow(s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM properties WHERE roll_number = $1", rol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return p, nil
}

// ReplaceAll 在一个事务中清空并写入 props
func (s *Store) ReplaceAll(ctx context.Context, props []*model.Property) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM properties"); err != nil {
		return fmt.Errorf("failed to clear properties: %w", err)
	}

	batch := &pgx.Batch{}
	rols := make([]string, 0, len(props))
	for _, p := range props {
		r, err := s.prepare(p)
		if err != nil {
			return err
		}
		batch.Queue(insertSQL, rowArgs(r)...)
		rols = append(rols, r.RollNumber)
	}

	br := tx.SendBatch(ctx, batch)
	for _, rol := range rols {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert property: %w", mapConstraint(err, rol))
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear 删除全部记录
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM properties"); err != nil {
		return fmt.Errorf("failed to clear properties: %w", err)
	}
	return nil
}

// Count 记录数量
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(1) FROM properties").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return n, nil
}
