package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

type ticketRepo struct {
	db *sqlx.DB
}

func NewTicketRepo(db *sqlx.DB) realtime.TicketStore {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) Insert(ctx context.Context, p models.Participant) error {
	query := "INSERT INTO waiting_users (id) VALUES ($1)"

	res, err := r.db.ExecContext(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("insert waiting ticket: %w", err)
	}

	if aff, err := res.RowsAffected(); aff == 0 || err != nil {
		return fmt.Errorf("insert waiting ticket no rows affected: %w", err)
	}

	return nil
}

func (r *ticketRepo) SelectOldest(ctx context.Context, limit int) ([]models.Participant, error) {
	var tickets []models.Participant

	query := "SELECT id, enqueued_at FROM waiting_users ORDER BY enqueued_at ASC, id ASC LIMIT $1"

	if err := r.db.SelectContext(ctx, &tickets, query, limit); err != nil {
		return nil, fmt.Errorf("select waiting tickets: %w", err)
	}

	return tickets, nil
}

// Delete removes the named tickets. Rows already deleted by the other
// side of a pairing are simply absent, which is not an error.
func (r *ticketRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM waiting_users WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("build delete waiting tickets query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete waiting tickets: %w", err)
	}

	return nil
}
