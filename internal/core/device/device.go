// Package device implements the Device entity, its optional login session
// and their read/write operations.
package device

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/core/user"
	"github.com/dmitrijs2005/recordkeeper/internal/model"
	"github.com/dmitrijs2005/recordkeeper/internal/vo"
)

const ModelName = "Device"

// Name is a device label of 2 to 32 letters and spaces, starting and ending
// with a letter.
type Name string

var ParseName = vo.Text[Name](vo.TextRule{
	Name:    "DeviceName",
	Pattern: regexp.MustCompile(`^\p{L}[\p{L}\s]{0,30}\p{L}$`),
})

func (n Name) String() string { return string(n) }

// Token identifies a device: 64 word characters.
type Token string

var ParseToken = vo.Text[Token](vo.TextRule{
	Name:    "DeviceToken",
	Pattern: regexp.MustCompile(`^\w{64}$`),
})

func (t Token) String() string { return string(t) }

// SessionToken is the secret a logged-in device presents.
type SessionToken string

const (
	sessionTokenPrefix = "GNI"
	sessionTokenLen    = 64
)

var ParseSessionToken = vo.Text[SessionToken](vo.TextRule{
	Name:    "SessionToken",
	Pattern: regexp.MustCompile(`^\w{64}$`),
})

// GenerateSessionToken returns a fresh random token with the GNI prefix.
func GenerateSessionToken() (SessionToken, error) {
	body, err := common.MakeRandHexString(sessionTokenLen / 2)
	if err != nil {
		return "", err
	}
	return SessionToken((sessionTokenPrefix + body)[:sessionTokenLen]), nil
}

func (t SessionToken) String() string { return string(t) }

// Status tells whether a device may open sessions. Unknown codes read as
// Unauthorized.
type Status int16

const (
	Unauthorized Status = iota
	Authorized
)

func StatusFromCode(code int16) Status {
	if Status(code) == Authorized {
		return Authorized
	}
	return Unauthorized
}

// ParseStatus matches status names case-insensitively after trimming.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authorized":
		return Authorized, nil
	case "unauthorized":
		return Unauthorized, nil
	}
	return Unauthorized, common.NewInvalidValue("DeviceStatus")
}

func (s Status) Code() int16 { return int16(s) }

func (s Status) String() string {
	if s == Authorized {
		return "Authorized"
	}
	return "Unauthorized"
}

// ExpirationTimestamp is the instant a session stops being valid.
type ExpirationTimestamp struct {
	t time.Time
}

// NewExpirationTimestamp expires ttl from now.
func NewExpirationTimestamp(ttl time.Duration) ExpirationTimestamp {
	return ExpirationAt(time.Now().Add(ttl))
}

// ExpirationAt wraps a stored or computed instant; past instants are valid.
func ExpirationAt(t time.Time) ExpirationTimestamp {
	return ExpirationTimestamp{t: t.UTC().Truncate(time.Microsecond)}
}

func (e ExpirationTimestamp) Time() time.Time { return e.t }

func (e ExpirationTimestamp) Expired(now time.Time) bool { return !now.Before(e.t) }

func (e ExpirationTimestamp) Equal(o ExpirationTimestamp) bool { return e.t.Equal(o.t) }

// Session binds a device to the user logged in on it.
type Session struct {
	token      SessionToken
	userID     user.ID
	expiration ExpirationTimestamp
}

func NewSession(token SessionToken, userID user.ID, expiration ExpirationTimestamp) Session {
	return Session{token: token, userID: userID, expiration: expiration}
}

func (s Session) Token() SessionToken { return s.token }

func (s Session) UserID() user.ID { return s.userID }

func (s Session) Expiration() ExpirationTimestamp { return s.expiration }

func (s Session) Equal(o Session) bool {
	return s.token == o.token && s.userID == o.userID && s.expiration.Equal(o.expiration)
}

// Device is the state of a device record; it has at most one session.
type Device struct {
	name    Name
	session *Session
	status  Status
}

type (
	ID     = vo.ID[Device, Token]
	Record = model.Record[Device, Token]
)

func (Device) ModelName() string { return ModelName }

func (Device) ParseKey(s string) (Token, error) { return ParseToken(s) }

func ParseID(s string) (ID, error) { return vo.ParseID[Device, Token](s) }

func (d Device) Name() Name { return d.name }

func (d Device) Status() Status { return d.status }

func (d Device) Session() *Session { return cloneSession(d.session) }

// New registers a device without a session.
func New(token, name string, status Status, author uuid.UUID) (*Record, error) {
	id, err := ParseID(token)
	if err != nil {
		return nil, err
	}
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	return model.NewRecord(id, Device{name: n, status: status}, vo.Now(author)), nil
}

// Update is the pending-update snapshot of a Device. Setting Session
// replaces the stored session; nil removes it.
type Update struct {
	Name    Name
	Status  Status
	Session *Session
}

func (d Device) Snapshot() Update {
	return Update{Name: d.name, Status: d.status, Session: d.session}
}

func (u Update) Clone() Update {
	u.Session = cloneSession(u.Session)
	return u
}

func (u Update) Equal(o Update) bool {
	if u.Name != o.Name || u.Status != o.Status {
		return false
	}
	if u.Session == nil || o.Session == nil {
		return u.Session == nil && o.Session == nil
	}
	return u.Session.Equal(*o.Session)
}

func (u Update) Apply(d *Device) {
	d.name = u.Name
	d.status = u.Status
	d.session = cloneSession(u.Session)
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// View is a stored device with the version it was created with.
type View struct {
	ID           ID
	Device       Device
	Version      vo.Version
	FirstVersion vo.Version
}

// AsRecord converts the view back into a record. FirstVersion is dropped.
func (v *View) AsRecord() *Record {
	return model.NewRecord(v.ID, v.Device, v.Version)
}

// ListDevices lists live devices, optionally only those with Status.
// Expired sessions are purged first and corrupt device rows are deleted.
type ListDevices struct {
	Status *Status
}

// WriteDevice upserts Record and replaces its session.
type WriteDevice struct {
	Record *Record
}
