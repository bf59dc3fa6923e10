// Package source implements the read/write protocol that decouples domain
// operations from a concrete backend.
//
// An operation is plain data with one backend-specific method: Read for
// lookups and listings, Write for persisting a record. A Source lends the
// operation a connection handle of type C for the duration of the call:
// a pooled connection for reads, a transaction for writes.
//
//	view, err := source.Read(ctx, pg, role.GetRoleByName(name))
//	err = source.Write(ctx, pg, role.WriteRole{Record: rec})
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// Reader is a read operation against a backend with handle type C.
type Reader[C any, O any] interface {
	Read(ctx context.Context, conn C) (O, error)
}

// Writer is a write operation against a backend with handle type C.
type Writer[C any] interface {
	Write(ctx context.Context, conn C) error
}

// Source is a connection-bearing backend. Conn scopes a read to one
// borrowed connection; Tx scopes a write to one transaction that commits
// only if fn succeeds.
type Source[C any] interface {
	Conn(ctx context.Context, fn func(ctx context.Context, conn C) error) error
	Tx(ctx context.Context, fn func(ctx context.Context, conn C) error) error
}

// Observer is implemented by sources that record per-operation metrics.
type Observer interface {
	ObserveOperation(kind, operation string, start time.Time, err error)
}

// Read runs op on a connection borrowed from src. Any failure is returned
// as a *common.PersistenceError.
func Read[C any, O any](ctx context.Context, src Source[C], op Reader[C, O]) (out O, err error) {
	if o, ok := src.(Observer); ok {
		start := time.Now()
		defer func() { o.ObserveOperation("read", OperationName(op), start, err) }()
	}

	err = src.Conn(ctx, func(ctx context.Context, conn C) error {
		var rerr error
		out, rerr = op.Read(ctx, conn)
		return rerr
	})
	if err != nil {
		var zero O
		return zero, common.AsPersistence(err)
	}
	return out, nil
}

// Write runs op inside one transaction of src. Either every statement op
// issues commits or none do; failures are returned as a
// *common.PersistenceError.
func Write[C any](ctx context.Context, src Source[C], op Writer[C]) (err error) {
	if o, ok := src.(Observer); ok {
		start := time.Now()
		defer func() { o.ObserveOperation("write", OperationName(op), start, err) }()
	}

	return common.AsPersistence(src.Tx(ctx, op.Write))
}

// OperationName is the metric label of op, e.g. "role.GetRole".
func OperationName(op any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", op), "*")
}
