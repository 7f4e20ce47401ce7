package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// Include eagerly loads a relation for a batch of parents with one query.
type Include[T any] func(ctx context.Context, q Querier, parents []*T) error

// Repository is the gateway for one entity type inside a unit of work.
// Reads hit the store immediately; writes are staged until Complete.
type Repository[T any, ID comparable] struct {
	session *session
	table   Table[T, ID]

	tracked map[ID]*T
	inserts map[*T]*change
	updates map[ID]*change
	deletes map[ID]*change
}

func newRepository[T any, ID comparable](s *session, table Table[T, ID]) *Repository[T, ID] {
	r := &Repository[T, ID]{session: s, table: table}
	r.reset()
	s.resets = append(s.resets, r.reset)
	return r
}

func (r *Repository[T, ID]) reset() {
	r.tracked = make(map[ID]*T)
	r.inserts = make(map[*T]*change)
	r.updates = make(map[ID]*change)
	r.deletes = make(map[ID]*change)
}

// FindOne returns the first entity matching filter, or nil when none does.
func (r *Repository[T, ID]) FindOne(ctx context.Context, filter Filter, track bool) (*T, error) {
	return r.FindOneWithRelations(ctx, filter, nil, track)
}

// FindOneWithRelations is FindOne with eager loaded relations.
func (r *Repository[T, ID]) FindOneWithRelations(ctx context.Context, filter Filter, includes []Include[T], track bool) (*T, error) {
	items, err := r.fetch(ctx, filter, includes, nil, 1, track)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// FindMany returns every entity matching filter.
func (r *Repository[T, ID]) FindMany(ctx context.Context, filter Filter, track bool) ([]*T, error) {
	return r.fetch(ctx, filter, nil, nil, 0, track)
}

// FindManyWithRelations returns every match with relations loaded, ordered by order.
func (r *Repository[T, ID]) FindManyWithRelations(ctx context.Context, filter Filter, includes []Include[T], order OrderBy, track bool) ([]*T, error) {
	return r.fetch(ctx, filter, includes, order, 0, track)
}

// Query starts a composable query over the entity set.
func (r *Repository[T, ID]) Query() *Query[T, ID] {
	return &Query[T, ID]{repo: r}
}

// Tracked reports whether an entity with key is attached to the session.
func (r *Repository[T, ID]) Tracked(key ID) (*T, bool) {
	entity, ok := r.tracked[key]
	return entity, ok
}

// Add stages entity for insertion. Its key is assigned once the unit of work commits.
func (r *Repository[T, ID]) Add(ctx context.Context, entity *T) error {
	if err := r.writable(ctx, entity, "add"); err != nil {
		return err
	}
	if _, staged := r.inserts[entity]; staged {
		return nil
	}

	var key ID
	c := &change{}
	c.apply = func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
		query, args, err := sqlx.Named(r.table.insertSQL(), entity)
		if err != nil {
			return 0, fmt.Errorf("bind insert %s: %w", r.table.Name, err)
		}
		if err := tx.QueryRowxContext(ctx, tx.Rebind(query), args...).Scan(&key); err != nil {
			return 0, fmt.Errorf("insert %s: %w", r.table.Name, err)
		}
		return 1, nil
	}
	c.onDone = func() { r.table.SetKey(entity, key) }

	r.inserts[entity] = c
	r.session.stage(c)
	return nil
}

// AddMany stages every entity for insertion.
func (r *Repository[T, ID]) AddMany(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		if err := r.Add(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// Update stages a full replace of the row keyed by entity. When an instance
// with the same key is tracked, entity's values are copied into it and a
// single update is kept for that key.
func (r *Repository[T, ID]) Update(ctx context.Context, entity *T) error {
	if err := r.writable(ctx, entity, "update"); err != nil {
		return err
	}
	if _, pending := r.inserts[entity]; pending {
		return nil
	}

	key := r.table.KeyOf(entity)
	var zero ID
	if key == zero {
		return fmt.Errorf("update %s: entity has no key", r.table.Name)
	}
	if _, removed := r.deletes[key]; removed {
		return fmt.Errorf("update %s: entity %v is staged for removal", r.table.Name, key)
	}

	target := entity
	if existing, ok := r.tracked[key]; ok {
		if existing != entity {
			*existing = *entity
		}
		target = existing
	} else {
		r.tracked[key] = entity
	}

	if _, staged := r.updates[key]; staged {
		return nil
	}

	c := &change{apply: func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
		query, args, err := sqlx.Named(r.table.updateSQL(), target)
		if err != nil {
			return 0, fmt.Errorf("bind update %s: %w", r.table.Name, err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return 0, fmt.Errorf("update %s: %w", r.table.Name, err)
		}
		return res.RowsAffected()
	}}
	r.updates[key] = c
	r.session.stage(c)
	return nil
}

// Remove stages deletion of entity. Removing a pending insert unstages it.
func (r *Repository[T, ID]) Remove(ctx context.Context, entity *T) error {
	if err := r.writable(ctx, entity, "remove"); err != nil {
		return err
	}
	if c, pending := r.inserts[entity]; pending {
		c.dropped = true
		delete(r.inserts, entity)
		return nil
	}

	key := r.table.KeyOf(entity)
	var zero ID
	if key == zero {
		return fmt.Errorf("remove %s: entity has no key", r.table.Name)
	}
	if c, staged := r.updates[key]; staged {
		c.dropped = true
		delete(r.updates, key)
	}
	delete(r.tracked, key)
	if _, staged := r.deletes[key]; staged {
		return nil
	}

	c := &change{apply: func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, tx.Rebind(r.table.deleteSQL()), key)
		if err != nil {
			return 0, fmt.Errorf("delete %s: %w", r.table.Name, err)
		}
		return res.RowsAffected()
	}}
	r.deletes[key] = c
	r.session.stage(c)
	return nil
}

// RemoveMany stages deletion of every entity.
func (r *Repository[T, ID]) RemoveMany(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		if err := r.Remove(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository[T, ID]) writable(ctx context.Context, entity *T, op string) error {
	if r.session.closed {
		return appErrors.ErrUnitOfWorkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("%s %s: nil entity", op, r.table.Name)
	}
	return nil
}

func (r *Repository[T, ID]) fetch(ctx context.Context, filter Filter, includes []Include[T], order OrderBy, limit int, track bool) ([]*T, error) {
	if r.session.closed {
		return nil, appErrors.ErrUnitOfWorkClosed
	}
	query, args, err := r.table.selectSQL(filter, order, limit)
	if err != nil {
		return nil, queryError(err)
	}
	conn, err := r.session.querier(ctx)
	if err != nil {
		return nil, queryError(fmt.Errorf("acquire connection: %w", err))
	}

	var items []*T
	if err := sqlx.SelectContext(ctx, conn, &items, conn.Rebind(query), args...); err != nil {
		return nil, queryError(fmt.Errorf("select %s: %w", r.table.Name, err))
	}

	if track {
		items = r.attach(items)
	}

	for _, include := range includes {
		if err := include(ctx, conn, items); err != nil {
			return nil, queryError(err)
		}
	}
	return items, nil
}

// attach registers items in the identity map, substituting instances already tracked.
func (r *Repository[T, ID]) attach(items []*T) []*T {
	for i, item := range items {
		key := r.table.KeyOf(item)
		if existing, ok := r.tracked[key]; ok {
			items[i] = existing
			continue
		}
		if _, removed := r.deletes[key]; removed {
			continue
		}
		r.tracked[key] = item
	}
	return items
}

func queryError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrQuery.Code, appErrors.ErrQuery.Status, appErrors.ErrQuery.Message)
}
