package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"rolmap/internal/model"
)

const propertyColumns = `id, roll_number, address, use_type, owner_name, owner_tax_id,
	postal_code, image_url, land_area, construction_area,
	land_valuation, construction_valuation, total_valuation,
	exempt_valuation, taxable_valuation, latitude, longitude,
	created_at, updated_at`

const insertProperty = `INSERT INTO properties (` + propertyColumns + `) VALUES (
	?, ?, ?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?,
	?, ?, ?, ?,
	?, ?
)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(r rowScanner) (*model.Property, error) {
	p := &model.Property{}
	err := r.Scan(
		&p.ID, &p.RollNumber, &p.Address, &p.Use, &p.OwnerName, &p.OwnerTaxID,
		&p.PostalCode, &p.ImageURL, &p.LandArea, &p.ConstructionArea,
		&p.LandValuation, &p.ConstructionValuation, &p.TotalValuation,
		&p.ExemptValuation, &p.TaxableValuation, &p.Latitude, &p.Longitude,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func insertArgs(p *model.Property) []interface{} {
	return []interface{}{
		p.ID, p.RollNumber, p.Address, p.Use, p.OwnerName, p.OwnerTaxID,
		p.PostalCode, p.ImageURL, p.LandArea, p.ConstructionArea,
		p.LandValuation, p.ConstructionValuation, p.TotalValuation,
		p.ExemptValuation, p.TaxableValuation, p.Latitude, p.Longitude,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	}
}

// prepare 补全身份键、时间戳并重算总估价
func prepare(p *model.Property) *model.Property {
	rec := p.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := nowFunc()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	rec.Recompute()
	return rec
}

// mapConstraint 把 UNIQUE 冲突转换为领域错误
func mapConstraint(err error, rol string) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", model.ErrDuplicateRollNumber, rol)
	}
	return err
}

// GetAll 按写入顺序返回全部记录
func (s *Store) GetAll(ctx context.Context) ([]*model.Property, error) {
	return s.queryProperties(ctx, "SELECT "+propertyColumns+" FROM properties ORDER BY rowid")
}

// Get 按身份键获取记录
func (s *Store) Get(ctx context.Context, id string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+propertyColumns+" FROM properties WHERE id = ?", id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// Create 新建记录，返回身份键
func (s *Store) Create(ctx context.Context, p *model.Property) (string, error) {
	rec := prepare(p)
	if _, err := s.db.ExecContext(ctx, insertProperty, insertArgs(rec)...); err != nil {
		return "", fmt.Errorf("failed to insert property: %w", mapConstraint(err, rec.RollNumber))
	}
	return rec.ID, nil
}

// Update 覆盖记录的可写字段
func (s *Store) Update(ctx context.Context, id string, p *model.Property) error {
	rec := p.Clone()
	rec.Recompute()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = nowFunc()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE properties SET
			roll_number = ?, address = ?, use_type = ?, owner_name = ?, owner_tax_id = ?,
			postal_code = ?, image_url = ?, land_area = ?, construction_area = ?,
			land_valuation = ?, construction_valuation = ?, total_valuation = ?,
			exempt_valuation = ?, taxable_valuation = ?, latitude = ?, longitude = ?,
			updated_at = ?
		WHERE id = ?
	`,
		rec.RollNumber, rec.Address, rec.Use, rec.OwnerName, rec.OwnerTaxID,
		rec.PostalCode, rec.ImageURL, rec.LandArea, rec.ConstructionArea,
		rec.LandValuation, rec.ConstructionValuation, rec.TotalValuation,
		rec.ExemptValuation, rec.TaxableValuation, rec.Latitude, rec.Longitude,
		rec.UpdatedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", mapConstraint(err, rec.RollNumber))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete 删除记录
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// FindByRollNumber 按 ROL 精确查找，不存在返回 nil, nil
func (s *Store) FindByRollNumber(ctx context.Context, rol string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+propertyColumns+" FROM properties WHERE roll_number = ?", rol)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return p, nil
}

// ReplaceAll 在一个事务中清空并写入 props
func (s *Store) ReplaceAll(ctx context.Context, props []*model.Property) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM properties"); err != nil {
			return fmt.Errorf("failed to clear properties: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insertProperty)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range props {
			rec := prepare(p)
			if _, err := stmt.ExecContext(ctx, insertArgs(rec)...); err != nil {
				return fmt.Errorf("failed to insert property: %w", mapConstraint(err, rec.RollNumber))
			}
		}
		return nil
	})
}

// Clear 删除全部记录
func (s *Store) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM properties"); err != nil {
			return fmt.Errorf("failed to clear properties: %w", err)
		}
		return nil
	})
}

// Count 记录数量
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM properties").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return n, nil
}

// QueryOptions 列表查询选项
type QueryOptions struct {
	Filters model.SearchFilters
	Limit   int
	Offset  int
}

// Search 按条件分页查询，返回当前页与总数
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]*model.Property, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	f := opts.Filters
	if f.RollNumber != "" {
		// instr 区分大小写
		where += " AND instr(roll_number, ?) > 0"
		args = append(args, f.RollNumber)
	}
	if f.Address != "" {
		where += ` AND lower(address) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(f.Address))+"%")
	}
	if f.Use != "" {
		where += " AND use_type = ?"
		args = append(args, f.Use)
	}
	if f.MinValuation != nil {
		where += " AND total_valuation >= ?"
		args = append(args, *f.MinValuation)
	}
	if f.MaxValuation != nil {
		where += " AND total_valuation <= ?"
		args = append(args, *f.MaxValuation)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM properties"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	query := "SELECT " + propertyColumns + " FROM properties" + where + " ORDER BY rowid"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	props, err := s.queryProperties(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return props, total, nil
}

func (s *Store) queryProperties(ctx context.Context, query string, args ...interface{}) ([]*model.Property, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	out := []*model.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
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

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
