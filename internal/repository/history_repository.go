package repository

import (
	"context"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

// HistoryRepository stores the immutable audit trail. Entries are append
// only; there is deliberately no update or delete.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error)
	CountByTicket(ctx context.Context, ticketID int64) (int, error)
}

type historyRepository struct {
	db DB
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(db DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, actor_id, action, prev_status, new_status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.Action,
		entry.PrevStatus,
		entry.NewStatus,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// ListByTicket orders by created_at then id, so entries written in one
// transaction (which share a timestamp) keep insertion order.
func (r *historyRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, actor_id, action, prev_status, new_status, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.Action,
			&entry.PrevStatus,
			&entry.NewStatus,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *historyRepository) CountByTicket(ctx context.Context, ticketID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_history WHERE ticket_id=$1`, ticketID).Scan(&count)
	return count, err
}
