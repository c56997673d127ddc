package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on SQLite-dialect databases reached through
// database/sql: local SQLite files and libSQL servers. The caller opens the
// handle with a single connection so transactions serialise.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore constructs an SQLStore on an already migrated handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const sqlSessionColumns = `id, date, time, turf_name, turf_cost, status, per_head_cost,
	collected, version, created_at, locked_at, closed_at`

// Create inserts the session and its participants in one transaction.
func (r *SQLStore) Create(ctx context.Context, s *model.Session) error {
	if s.Version == 0 {
		s.Version = 1
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sqlSessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Date, s.Time, s.TurfName, s.TurfCost, string(s.Status), nullInt(s.PerHeadCost),
		s.Collected, s.Version, s.CreatedAt.UnixNano(), nullTime(s.LockedAt), nullTime(s.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if err := sqlInsertParticipants(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a single session or ErrNotFound.
func (r *SQLStore) GetByID(ctx context.Context, id string) (*model.Session, error) {
	return sqlLoad(ctx, r.db, `SELECT `+sqlSessionColumns+` FROM sessions WHERE id = ?`, id)
}

// GetCurrent returns the newest open or locked session.
func (r *SQLStore) GetCurrent(ctx context.Context) (*model.Session, error) {
	return sqlLoad(ctx, r.db,
		`SELECT `+sqlSessionColumns+` FROM sessions
		 WHERE status IN ('open', 'locked')
		 ORDER BY created_at DESC
		 LIMIT 1`)
}

// ListByStatus returns every session in status, oldest first. The ids are
// read in full before any session is loaded since the pool has a single
// connection.
func (r *SQLStore) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	sessions := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Update applies fn inside a transaction. With a single pooled connection the
// transaction is exclusive for its whole duration, which gives the same
// per-session serialisation PostgresStore gets from FOR UPDATE.
func (r *SQLStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := sqlLoad(ctx, tx, `SELECT `+sqlSessionColumns+` FROM sessions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	if err := fn(s); err != nil {
		return nil, err
	}
	s.Version++

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions
		 SET status = ?, per_head_cost = ?, collected = ?, version = ?, locked_at = ?, closed_at = ?
		 WHERE id = ?`,
		string(s.Status), nullInt(s.PerHeadCost), s.Collected, s.Version,
		nullTime(s.LockedAt), nullTime(s.ClosedAt), s.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE session_id = ?`, s.ID); err != nil {
		return nil, fmt.Errorf("clear participants: %w", err)
	}
	if err := sqlInsertParticipants(ctx, tx, s); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return s, nil
}

// Close closes the database handle.
func (r *SQLStore) Close() error {
	return r.db.Close()
}

func sqlInsertParticipants(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	for i, p := range s.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (id, session_id, position, player_name, phone, identity,
			     rsvp_status, payment_status, amount_due, order_id, paid_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, s.ID, i, p.PlayerName, p.Phone, p.Identity,
			string(p.RSVPStatus), string(p.PaymentStatus), p.AmountDue, p.OrderID,
			nullTime(p.PaidAt), p.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

func sqlLoad(ctx context.Context, q sqlQuerier, query string, args ...any) (*model.Session, error) {
	var (
		s                  model.Session
		status             string
		perHead            sql.NullInt64
		created            int64
		lockedAt, closedAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &s.Date, &s.Time, &s.TurfName, &s.TurfCost, &status, &perHead,
		&s.Collected, &s.Version, &created, &lockedAt, &closedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.Status = model.SessionStatus(status)
	s.CreatedAt = time.Unix(0, created).UTC()
	s.PerHeadCost = intPtr(perHead)
	s.LockedAt = timePtr(lockedAt)
	s.ClosedAt = timePtr(closedAt)

	rows, err := q.QueryContext(ctx,
		`SELECT id, player_name, phone, identity, rsvp_status, payment_status,
		        amount_due, order_id, paid_at, created_at
		 FROM participants
		 WHERE session_id = ?
		 ORDER BY position ASC`,
		s.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p             model.Participant
			rsvp, payment string
			paidAt        sql.NullInt64
			pCreated      int64
		)
		if err := rows.Scan(&p.ID, &p.PlayerName, &p.Phone, &p.Identity, &rsvp, &payment,
			&p.AmountDue, &p.OrderID, &paidAt, &pCreated); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.SessionID = s.ID
		p.RSVPStatus = model.RSVPStatus(rsvp)
		p.PaymentStatus = model.PaymentStatus(payment)
		p.PaidAt = timePtr(paidAt)
		p.CreatedAt = time.Unix(0, pCreated).UTC()
		s.Participants = append(s.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return &s, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
