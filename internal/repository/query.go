package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// Query is an immutable, composable query over one entity set. Each builder
// call returns a new Query. Results are untracked unless Tracked is called.
type Query[T any, ID comparable] struct {
	repo   *Repository[T, ID]
	filter Filter
	order  OrderBy
	limit  int
	track  bool
}

func (q *Query[T, ID]) clone() *Query[T, ID] {
	c := *q
	c.order = append(OrderBy(nil), q.order...)
	return &c
}

// Where narrows the query with an additional predicate.
func (q *Query[T, ID]) Where(clause string, args ...any) *Query[T, ID] {
	c := q.clone()
	c.filter = c.filter.And(Where(clause, args...))
	return c
}

// OrderBy appends sort keys.
func (q *Query[T, ID]) OrderBy(orders ...Order) *Query[T, ID] {
	c := q.clone()
	c.order = append(c.order, orders...)
	return c
}

// Limit caps the number of rows returned. Zero means no limit.
func (q *Query[T, ID]) Limit(n int) *Query[T, ID] {
	c := q.clone()
	c.limit = n
	return c
}

// Tracked attaches results to the session.
func (q *Query[T, ID]) Tracked() *Query[T, ID] {
	c := q.clone()
	c.track = true
	return c
}

// All runs the query.
func (q *Query[T, ID]) All(ctx context.Context) ([]*T, error) {
	return q.repo.fetch(ctx, q.filter, nil, q.order, q.limit, q.track)
}

// First returns the first row or nil.
func (q *Query[T, ID]) First(ctx context.Context) (*T, error) {
	items, err := q.repo.fetch(ctx, q.filter, nil, q.order, 1, q.track)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// Count returns the number of matching rows.
func (q *Query[T, ID]) Count(ctx context.Context) (int64, error) {
	query, args, err := q.repo.table.countSQL(q.filter)
	if err != nil {
		return 0, queryError(err)
	}
	conn, err := q.scalarConn(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := conn.QueryRowxContext(ctx, conn.Rebind(query), args...).Scan(&count); err != nil {
		return 0, queryError(fmt.Errorf("count %s: %w", q.repo.table.Name, err))
	}
	return count, nil
}

// Exists reports whether any row matches.
func (q *Query[T, ID]) Exists(ctx context.Context) (bool, error) {
	query, args, err := q.repo.table.existsSQL(q.filter)
	if err != nil {
		return false, queryError(err)
	}
	conn, err := q.scalarConn(ctx)
	if err != nil {
		return false, err
	}
	var one int
	if err := conn.QueryRowxContext(ctx, conn.Rebind(query), args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, queryError(fmt.Errorf("exists %s: %w", q.repo.table.Name, err))
	}
	return true, nil
}

func (q *Query[T, ID]) scalarConn(ctx context.Context) (*sqlx.Conn, error) {
	if q.repo.session.closed {
		return nil, appErrors.ErrUnitOfWorkClosed
	}
	conn, err := q.repo.session.querier(ctx)
	if err != nil {
		return nil, queryError(fmt.Errorf("acquire connection: %w", err))
	}
	return conn, nil
}
