package mongo

import (
	"context"
	"fmt"
	"time"
	apperrors "tourbook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type TxOption func(*options.TransactionOptions)

// WithMaxCommitTime caps how long the server may spend on commitTransaction.
func WithMaxCommitTime(d time.Duration) TxOption {
	return func(o *options.TransactionOptions) {
		o.SetMaxCommitTime(&d)
	}
}

type mongoTransactionManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

// NewTransactionManager runs transactions with snapshot reads and majority
// writes on the primary, so a committed claim is never rolled back by a
// failover.
func NewTransactionManager(client *mongo.Client, opts ...TxOption) TransactionManager {
	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	for _, opt := range opts {
		opt(txOpts)
	}
	return &mongoTransactionManager{client: client, opts: txOpts}
}

// ExecuteTransaction runs fn inside a session transaction. The driver retries
// fn on TransientTransactionError, so fn must be safe to run more than once.
// AppErrors come back untouched; anything else is wrapped.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, m.opts)
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	default:
		return fmt.Errorf("transaction failed: %w", err)
	}
}
