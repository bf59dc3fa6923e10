// Package model couples an identity, a domain state and an audit version into
// a Record and exposes the only sanctioned way to mutate it.
//
// Records are not safe for concurrent mutation; callers serialize access to a
// given in-memory record.
package model

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/vo"
)

// Model is the contract every entity state implements: it names its kind,
// parses its key, and derives the pending-update snapshot U for the checked
// update.
type Model[K vo.Key, U any] interface {
	vo.Identifiable[K]
	Snapshot() U
}

// Snapshot is an entity's pending-update shape. Clone must deep-copy
// set-valued fields, Equal is full value equality, Apply merges the snapshot
// into the state.
type Snapshot[M any, U any] interface {
	Clone() U
	Equal(other U) bool
	Apply(state *M)
}

type Record[M vo.Identifiable[K], K vo.Key] struct {
	id      vo.ID[M, K]
	state   M
	version vo.Version
}

func NewRecord[M vo.Identifiable[K], K vo.Key](id vo.ID[M, K], state M, version vo.Version) *Record[M, K] {
	return &Record[M, K]{id: id, state: state, version: version}
}

func (r *Record[M, K]) ID() vo.ID[M, K] {
	return r.id
}

func (r *Record[M, K]) State() M {
	return r.state
}

func (r *Record[M, K]) Version() vo.Version {
	return r.version
}

// Update runs mutate against a snapshot of the record's state. It reports
// false and leaves the record untouched when mutate fails or produces an
// equal snapshot; otherwise the snapshot is applied and the version is
// replaced by a fresh stamp for author.
func Update[M Model[K, U], K vo.Key, U Snapshot[M, U]](r *Record[M, K], author uuid.UUID, mutate func(u *U) error) (bool, error) {
	return UpdateContext(context.Background(), r, author, func(_ context.Context, u *U) error {
		return mutate(u)
	})
}

// UpdateContext is Update for mutators that block. Only the mutator
// receives ctx; snapshot derivation and comparison stay synchronous.
func UpdateContext[M Model[K, U], K vo.Key, U Snapshot[M, U]](ctx context.Context, r *Record[M, K], author uuid.UUID, mutate func(ctx context.Context, u *U) error) (bool, error) {
	next := vo.Now(author)

	before := r.state.Snapshot()
	after := before.Clone()

	if err := mutate(ctx, &after); err != nil {
		return false, err
	}

	if before.Equal(after) {
		return false, nil
	}

	after.Apply(&r.state)
	r.version = next
	return true, nil
}
