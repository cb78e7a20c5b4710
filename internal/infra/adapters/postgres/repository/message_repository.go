package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nanalive/randomchat/internal/domain/models"
	"github.com/nanalive/randomchat/internal/realtime"
)

type messageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) realtime.MessageStore {
	return &messageRepo{db: db}
}

func (r *messageRepo) Insert(ctx context.Context, msg models.Message) error {
	query := "INSERT INTO message (body, sender, receiver) VALUES ($1, $2, $3)"

	res, err := r.db.ExecContext(ctx, query, msg.Body, msg.Sender, msg.Receiver)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if aff, err := res.RowsAffected(); aff == 0 || err != nil {
		return fmt.Errorf("insert message no rows affected: %w", err)
	}

	return nil
}
