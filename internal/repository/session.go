package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// Querier is the read surface shared by the session connection and relation loaders.
type Querier interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// change is one staged write, applied in staging order inside the commit transaction.
type change struct {
	apply   func(ctx context.Context, tx *sqlx.Tx) (int64, error)
	onDone  func()
	dropped bool
}

// session owns the dedicated connection and the staged changes of one unit of work.
type session struct {
	db      *sqlx.DB
	conn    *sqlx.Conn
	changes []*change
	resets  []func()
	closed  bool
}

func newSession(db *sqlx.DB) *session {
	return &session{db: db}
}

func (s *session) querier(ctx context.Context) (*sqlx.Conn, error) {
	if s.closed {
		return nil, appErrors.ErrUnitOfWorkClosed
	}
	if s.conn == nil {
		conn, err := s.db.Connx(ctx)
		if err != nil {
			return nil, err
		}
		s.conn = conn
	}
	return s.conn, nil
}

func (s *session) stage(c *change) {
	s.changes = append(s.changes, c)
}

func (s *session) pending() []*change {
	pending := make([]*change, 0, len(s.changes))
	for _, c := range s.changes {
		if !c.dropped {
			pending = append(pending, c)
		}
	}
	return pending
}

// reset drops staged changes and clears every repository's tracking state.
func (s *session) reset() {
	s.changes = nil
	for _, r := range s.resets {
		r()
	}
}

func (s *session) close() error {
	if s.closed {
		return nil
	}
	s.reset()
	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
