// Package repository provides filtered, sorted and paginated reads over any
// gorm model.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownColumn = errors.New("unknown column")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Operator string

const (
	OpEq       Operator = "eq"
	OpContains Operator = "contains"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
)

type Filter struct {
	Column string
	Op     Operator
	Value  any
}

type Sort struct {
	Column string
	Desc   bool
}

type PageOptions struct {
	Page     int
	PageSize int
}

// Args clamps the options and returns the SQL limit and offset.
func (po PageOptions) Args() (limit, offset int) {
	page := po.Page
	if page < 1 {
		page = 1
	}
	limit = po.PageSize
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return limit, (page - 1) * limit
}

type Query struct {
	Filters []Filter
	Sort    []Sort
	Page    PageOptions
	Preload []string
}

type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

// Map converts the items of a page, keeping its paging metadata.
func Map[T, U any](p Page[T], f func(T) U) Page[U] {
	items := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, f(item))
	}
	return Page[U]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages,
	}
}

// Repository reads T. Filters and sorts may only name whitelisted columns.
type Repository[T any] struct {
	db      *gorm.DB
	columns map[string]struct{}
}

func New[T any](db *gorm.DB, columns ...string) *Repository[T] {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return &Repository[T]{db: db, columns: allowed}
}

func (r *Repository[T]) Get(ctx context.Context, id any, preload ...string) (*T, error) {
	var entity T
	tx := r.db.WithContext(ctx)
	for _, p := range preload {
		tx = tx.Preload(p)
	}
	if err := tx.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return &entity, nil
}

func (r *Repository[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	tx, err := r.filtered(r.db.WithContext(ctx).Model(new(T)), filters)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *Repository[T]) Find(ctx context.Context, q Query) (Page[T], error) {
	limit, offset := q.Page.Args()

	total, err := r.Count(ctx, q.Filters...)
	if err != nil {
		return Page[T]{}, err
	}

	tx, err := r.filtered(r.db.WithContext(ctx).Model(new(T)), q.Filters)
	if err != nil {
		return Page[T]{}, err
	}
	for _, s := range q.Sort {
		if err := r.checkColumn(s.Column); err != nil {
			return Page[T]{}, err
		}
		direction := "ASC"
		if s.Desc {
			direction = "DESC"
		}
		tx = tx.Order(s.Column + " " + direction)
	}
	for _, p := range q.Preload {
		tx = tx.Preload(p)
	}

	items := make([]T, 0, limit)
	if err := tx.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return Page[T]{}, fmt.Errorf("failed to list records: %w", err)
	}

	return Page[T]{
		Items:      items,
		Page:       offset/limit + 1,
		PageSize:   limit,
		TotalCount: total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (r *Repository[T]) checkColumn(column string) error {
	if _, ok := r.columns[column]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return nil
}

func (r *Repository[T]) filtered(tx *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		if err := r.checkColumn(f.Column); err != nil {
			return nil, err
		}
		switch f.Op {
		case OpEq, "":
			tx = tx.Where(f.Column+" = ?", f.Value)
		case OpContains:
			tx = tx.Where("LOWER("+f.Column+") LIKE ?", "%"+strings.ToLower(fmt.Sprint(f.Value))+"%")
		case OpGte:
			tx = tx.Where(f.Column+" >= ?", f.Value)
		case OpLte:
			tx = tx.Where(f.Column+" <= ?", f.Value)
		case OpIn:
			tx = tx.Where(f.Column+" IN ?", f.Value)
		default:
			return nil, fmt.Errorf("unsupported filter operator: %s", f.Op)
		}
	}
	return tx, nil
}
