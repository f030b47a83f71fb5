// Package txn runs a group of writes in one MongoDB transaction when the
// deployment supports it. Standalone servers (no replica set) run the same
// function without a transaction, so fn must be safe to run twice.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func receives the context to use for every operation of the group. Inside
// a transaction it is a mongo.SessionContext.
type Func func(ctx context.Context) error

// Run executes fn inside a transaction, or directly when transactions are
// unavailable. op names the group in the fallback warning.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, op string, fn Func) error {
	session, err := db.Client().StartSession()
	if err != nil {
		warn(log, op, err)
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if IsNotSupported(err) {
		warn(log, op, err)
		return fn(ctx)
	}
	return err
}

func warn(log *zap.Logger, op string, err error) {
	if log != nil {
		log.Warn("running without transaction", zap.String("op", op), zap.Error(err))
	}
}

// unsupportedCodes are server codes meaning multi-document transactions are
// unavailable: 20 (not a replica set member), 51 (IllegalOperation) and
// 263 (operation not allowed in a transaction).
var unsupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err says transactions are unavailable.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && unsupportedCodes[cmdErr.Code] {
		return true
	}

	// DocumentDB and older servers only say so in the message; two hits
	// keep unrelated errors out.
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
