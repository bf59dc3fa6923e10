package device

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/core/user"
	"github.com/dmitrijs2005/recordkeeper/internal/model"
)

// OpenSession issues a fresh session for userID on rec, replacing any
// previous one. Only authorized devices may hold sessions. The record is
// changed in memory; persisting it is the caller's WriteDevice.
func OpenSession(rec *Record, userID user.ID, ttl time.Duration, author uuid.UUID) (Session, error) {
	if rec.State().Status() != Authorized {
		return Session{}, common.NewForbidden("device " + rec.ID().String() + " is not authorized")
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return Session{}, err
	}
	s := NewSession(token, userID, NewExpirationTimestamp(ttl))

	if _, err := model.Update(rec, author, func(u *Update) error {
		u.Session = &s
		return nil
	}); err != nil {
		return Session{}, err
	}
	return s, nil
}

// CloseSession drops the session held by rec. It reports whether there was
// one.
func CloseSession(rec *Record, author uuid.UUID) (bool, error) {
	return model.Update(rec, author, func(u *Update) error {
		u.Session = nil
		return nil
	})
}
