package order

import "context"

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	// SaveStatus writes status fields guarded by the persisted version.
	SaveStatus(ctx context.Context, order *Order) error
}
