package repository

import (
	"context"
	"database/sql"
	"time"

	"reflow_emulator/internal/models"
)

// EventRepo is the append-only journal of processed datagrams.
// Device state itself is never persisted.
type EventRepo interface {
	Append(ctx context.Context, e models.DeviceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
	}
}
