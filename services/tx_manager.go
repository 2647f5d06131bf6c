package services

import (
	"context"

	"gorm.io/gorm"
)

// TxManager scopes a unit of work to a single database transaction. Quota
// reservations and the node or blob writes they pay for must share one
// transaction, so that a rolled-back commit leaves the ledger unchanged.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
