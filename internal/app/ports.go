package app

import (
	"context"

	"github.com/hylla/tavla/internal/domain"
)

// Repository persists committed board state together with the event that produced it.
type Repository interface {
	LoadState(context.Context) (State, error)
	SaveState(context.Context, State, domain.ChangeEvent) error
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}
