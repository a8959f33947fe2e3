package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSubmissionSQL = `INSERT INTO submissions (
        id,
        session_id,
        op,
        account,
        tx_hash,
        payload,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	listRecentSubmissionsSQL = `SELECT
        id,
        session_id,
        op,
        account,
        tx_hash,
        payload,
        created_at
    FROM submissions
    ORDER BY created_at DESC
    LIMIT $1;`

	insertConfirmationSQL = `INSERT INTO confirmations (
        tx_hash,
        kind,
        block_number,
        session_id,
        description,
        received_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (tx_hash, kind) DO NOTHING;`

	listConfirmationsBetweenSQL = `SELECT
        tx_hash,
        kind,
        block_number,
        session_id,
        description,
        received_at
    FROM confirmations
    WHERE received_at >= $1
      AND received_at < $2
    ORDER BY received_at;`
)

// SubmissionStore persists submitted transactions.
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, sub Submission) error
	ListRecentSubmissions(ctx context.Context, limit int) ([]Submission, error)
}

// ConfirmationStore persists admitted contract events.
type ConfirmationStore interface {
	RecordConfirmation(ctx context.Context, conf Confirmation) error
	ListConfirmationsBetween(ctx context.Context, from, to time.Time) ([]Confirmation, error)
}

// Store aggregates access to the audit tables.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// RecordSubmission inserts a submission row. A zero ID is replaced by a new one.
func (s *Store) RecordSubmission(ctx context.Context, sub Submission) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	var payload interface{}
	if len(sub.Payload) > 0 {
		payload = []byte(sub.Payload)
	}

	if _, execErr := pool.Exec(ctx, insertSubmissionSQL,
		sub.ID.String(),
		sub.SessionID.String(),
		sub.Op,
		sub.Account,
		sub.TxHash,
		payload,
		sub.CreatedAt,
	); execErr != nil {
		return fmt.Errorf("insert submission: %w", execErr)
	}
	return nil
}

// ListRecentSubmissions lists the newest submissions first.
func (s *Store) ListRecentSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSubmissionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent submissions: %w", queryErr)
	}
	defer rows.Close()

	subs := make([]Submission, 0, limit)
	for rows.Next() {
		sub, scanErr := scanSubmission(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		subs = append(subs, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// RecordConfirmation inserts a confirmation row; a repeated (tx, kind) pair is ignored.
func (s *Store) RecordConfirmation(ctx context.Context, conf Confirmation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if conf.ReceivedAt.IsZero() {
		conf.ReceivedAt = time.Now().UTC()
	}

	var description interface{}
	if conf.Description != nil {
		description = *conf.Description
	}

	if _, execErr := pool.Exec(ctx, insertConfirmationSQL,
		conf.TxHash,
		conf.Kind,
		conf.BlockNumber,
		conf.SessionID.String(),
		description,
		conf.ReceivedAt,
	); execErr != nil {
		return fmt.Errorf("insert confirmation: %w", execErr)
	}
	return nil
}

// ListConfirmationsBetween lists confirmations received within [from, to).
func (s *Store) ListConfirmationsBetween(ctx context.Context, from, to time.Time) ([]Confirmation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listConfirmationsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list confirmations between: %w", queryErr)
	}
	defer rows.Close()

	confs := make([]Confirmation, 0)
	for rows.Next() {
		conf, scanErr := scanConfirmation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		confs = append(confs, conf)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return confs, nil
}

func scanSubmission(rows pgx.Rows) (Submission, error) {
	var (
		id, sessionID string
		sub           Submission
	)
	if err := rows.Scan(&id, &sessionID, &sub.Op, &sub.Account, &sub.TxHash, &sub.Payload, &sub.CreatedAt); err != nil {
		return Submission{}, err
	}

	var err error
	if sub.ID, err = uuid.Parse(id); err != nil {
		return Submission{}, fmt.Errorf("parse submission id: %w", err)
	}
	if sub.SessionID, err = uuid.Parse(sessionID); err != nil {
		return Submission{}, fmt.Errorf("parse session id: %w", err)
	}
	return sub, nil
}

func scanConfirmation(rows pgx.Rows) (Confirmation, error) {
	var (
		sessionID   string
		description sql.NullString
		conf        Confirmation
	)
	if err := rows.Scan(&conf.TxHash, &conf.Kind, &conf.BlockNumber, &sessionID, &description, &conf.ReceivedAt); err != nil {
		return Confirmation{}, err
	}

	id, err := uuid.Parse(sessionID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("parse session id: %w", err)
	}
	conf.SessionID = id
	if description.Valid {
		msg := description.String
		conf.Description = &msg
	}
	return conf, nil
}

var (
	_ SubmissionStore   = (*Store)(nil)
	_ ConfirmationStore = (*Store)(nil)
)
