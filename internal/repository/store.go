package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the querying surface shared by the pool and an open transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx exposes the repositories bound to one database handle. Inside
// Store.WithinTx every repository shares the same transaction, so a ticket
// write and its history entry commit or roll back together.
type Tx interface {
	Tickets() TicketRepository
	History() HistoryRepository
	Messages() MessageRepository
	Attachments() AttachmentRepository
}

// Store is the constructor-injected persistence handle. Reads may use the
// pool-bound repositories directly; every lifecycle mutation must go through
// WithinTx.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type repoSet struct {
	tickets     TicketRepository
	history     HistoryRepository
	messages    MessageRepository
	attachments AttachmentRepository
}

func newRepoSet(db DB) repoSet {
	return repoSet{
		tickets:     NewTicketRepository(db),
		history:     NewHistoryRepository(db),
		messages:    NewMessageRepository(db),
		attachments: NewAttachmentRepository(db),
	}
}

func (r repoSet) Tickets() TicketRepository         { return r.tickets }
func (r repoSet) History() HistoryRepository        { return r.history }
func (r repoSet) Messages() MessageRepository       { return r.messages }
func (r repoSet) Attachments() AttachmentRepository { return r.attachments }

type postgresStore struct {
	repoSet
	pool *pgxpool.Pool
}

// NewStore builds the Postgres-backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &postgresStore{repoSet: newRepoSet(pool), pool: pool}
}

// WithinTx runs fn inside a read-committed transaction. Combined with the
// FOR UPDATE ticket read this serializes concurrent mutations of the same
// ticket row.
func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck

	if err := fn(newRepoSet(pgtx)); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}
