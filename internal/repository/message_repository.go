package repository

import (
	"context"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
)

// MessageRepository manages the append-only ticket thread.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error)
}

type messageRepository struct {
	db DB
}

// NewMessageRepository builds repository.
func NewMessageRepository(db DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, author_id, body, sent_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorID,
		msg.Body,
		msg.SentAt,
	).Scan(&msg.ID)
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, sent_at
        FROM ticket_messages WHERE id=$1`
	var msg domain.Message
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.AuthorID,
		&msg.Body,
		&msg.SentAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, sent_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY sent_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.Body,
			&msg.SentAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
