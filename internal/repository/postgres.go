package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on PostgreSQL using pgx directly.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const pgSessionColumns = `id, date, time, turf_name, turf_cost, status, per_head_cost,
	collected, version, created_at, locked_at, closed_at`

// Create inserts the session and its participants in one transaction.
func (r *PostgresStore) Create(ctx context.Context, s *model.Session) error {
	if s.Version == 0 {
		s.Version = 1
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (`+pgSessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.Date, s.Time, s.TurfName, s.TurfCost, string(s.Status), s.PerHeadCost,
		s.Collected, s.Version, s.CreatedAt, s.LockedAt, s.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if err := pgInsertParticipants(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a single session or ErrNotFound.
func (r *PostgresStore) GetByID(ctx context.Context, id string) (*model.Session, error) {
	return pgLoad(ctx, r.db, `SELECT `+pgSessionColumns+` FROM sessions WHERE id = $1`, id)
}

// GetCurrent returns the newest open or locked session.
func (r *PostgresStore) GetCurrent(ctx context.Context) (*model.Session, error) {
	return pgLoad(ctx, r.db,
		`SELECT `+pgSessionColumns+` FROM sessions
		 WHERE status IN ('open', 'locked')
		 ORDER BY created_at DESC
		 LIMIT 1`)
}

// ListByStatus returns every session in status, oldest first.
func (r *PostgresStore) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM sessions WHERE status = $1 ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan session ids: %w", err)
	}

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

// Update serialises read-modify-write on one session.
//
// SELECT … FOR UPDATE takes a row-level exclusive lock on the session row
// inside the transaction. A concurrent Update of the same session blocks on
// its own SELECT … FOR UPDATE until this transaction commits or rolls back,
// so two cash marks, or a lock racing a late RSVP, always observe each
// other's writes. Updates of different sessions do not contend.
func (r *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Session, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s, err := pgLoad(ctx, tx, `SELECT `+pgSessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}

	if err := fn(s); err != nil {
		return nil, err
	}
	s.Version++

	_, err = tx.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, per_head_cost = $3, collected = $4, version = $5,
		     locked_at = $6, closed_at = $7
		 WHERE id = $1`,
		s.ID, string(s.Status), s.PerHeadCost, s.Collected, s.Version, s.LockedAt, s.ClosedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	// The roster is small; rewriting it keeps positions and removals simple.
	if _, err := tx.Exec(ctx, `DELETE FROM participants WHERE session_id = $1`, s.ID); err != nil {
		return nil, fmt.Errorf("clear participants: %w", err)
	}
	if err := pgInsertParticipants(ctx, tx, s); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return s, nil
}

// Close closes the pool.
func (r *PostgresStore) Close() error {
	r.db.Close()
	return nil
}

func pgInsertParticipants(ctx context.Context, tx pgx.Tx, s *model.Session) error {
	if len(s.Participants) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, p := range s.Participants {
		batch.Queue(
			`INSERT INTO participants (id, session_id, position, player_name, phone, identity,
			     rsvp_status, payment_status, amount_due, order_id, paid_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			p.ID, s.ID, i, p.PlayerName, p.Phone, p.Identity,
			string(p.RSVPStatus), string(p.PaymentStatus), p.AmountDue, p.OrderID, p.PaidAt, p.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert participants: %w", err)
	}
	return nil
}

func pgLoad(ctx context.Context, q querier, query string, args ...any) (*model.Session, error) {
	var (
		s      model.Session
		status string
	)
	err := q.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.Date, &s.Time, &s.TurfName, &s.TurfCost, &status, &s.PerHeadCost,
		&s.Collected, &s.Version, &s.CreatedAt, &s.LockedAt, &s.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.Status = model.SessionStatus(status)

	rows, err := q.Query(ctx,
		`SELECT id, player_name, phone, identity, rsvp_status, payment_status,
		        amount_due, order_id, paid_at, created_at
		 FROM participants
		 WHERE session_id = $1
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
			paidAt        *time.Time
		)
		if err := rows.Scan(&p.ID, &p.PlayerName, &p.Phone, &p.Identity, &rsvp, &payment,
			&p.AmountDue, &p.OrderID, &paidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.SessionID = s.ID
		p.RSVPStatus = model.RSVPStatus(rsvp)
		p.PaymentStatus = model.PaymentStatus(payment)
		p.PaidAt = paidAt
		s.Participants = append(s.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return &s, nil
}
