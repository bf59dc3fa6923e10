// Package user implements the User entity and its read/write operations.
package user

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/core"
	"github.com/dmitrijs2005/recordkeeper/internal/core/role"
	"github.com/dmitrijs2005/recordkeeper/internal/model"
	"github.com/dmitrijs2005/recordkeeper/internal/vo"
)

const ModelName = "User"

type Username string

var ParseUsername = vo.Text[Username](vo.TextRule{
	Name:    "Username",
	Pattern: regexp.MustCompile(`^[a-z0-9][a-z0-9_]{3,63}$`),
})

func (u Username) String() string { return string(u) }

type Email string

var ParseEmail = vo.Text[Email](vo.TextRule{
	Name:    "Email",
	Pattern: regexp.MustCompile("^[a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$"),
	Max:     254,
})

func (e Email) String() string { return string(e) }

// User is the state of a user record. Email and role are optional.
type User struct {
	username   Username
	password   Password
	email      *Email
	role       *role.ID
	privileges core.Privileges
}

type (
	ID     = vo.ID[User, uuid.UUID]
	Record = model.Record[User, uuid.UUID]
)

func (User) ModelName() string { return ModelName }

func (User) ParseKey(s string) (uuid.UUID, error) { return uuid.Parse(s) }

func ParseID(s string) (ID, error) { return vo.ParseID[User, uuid.UUID](s) }

func (u User) Username() Username { return u.username }

func (u User) Password() Password { return u.password }

func (u User) Email() *Email { return clonePtr(u.email) }

func (u User) Role() *role.ID { return clonePtr(u.role) }

func (u User) Privileges() core.Privileges { return u.privileges.Clone() }

// New validates raw inputs into a fresh user record; password is the
// plaintext and gets hashed here.
func New(username, password string, email *string, roleID *role.ID, privileges []string, author uuid.UUID) (*Record, error) {
	name, err := ParseUsername(username)
	if err != nil {
		return nil, err
	}
	var mail *Email
	if email != nil {
		e, err := ParseEmail(*email)
		if err != nil {
			return nil, err
		}
		mail = &e
	}
	ps, err := core.ParsePrivileges(privileges)
	if err != nil {
		return nil, err
	}
	hash, err := GeneratePassword(password)
	if err != nil {
		return nil, err
	}
	key, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	state := User{
		username:   name,
		password:   hash,
		email:      mail,
		role:       clonePtr(roleID),
		privileges: ps,
	}
	return model.NewRecord(vo.NewID[User](key), state, vo.Now(author)), nil
}

// Update is the pending-update snapshot of a User.
type Update struct {
	Username   Username
	Password   Password
	Email      *Email
	Role       *role.ID
	Privileges core.Privileges
}

func (u User) Snapshot() Update {
	return Update{
		Username:   u.username,
		Password:   u.password,
		Email:      u.email,
		Role:       u.role,
		Privileges: u.privileges,
	}
}

func (u Update) Clone() Update {
	u.Email = clonePtr(u.Email)
	u.Role = clonePtr(u.Role)
	u.Privileges = u.Privileges.Clone()
	return u
}

func (u Update) Equal(o Update) bool {
	return u.Username == o.Username &&
		u.Password == o.Password &&
		equalPtr(u.Email, o.Email) &&
		equalPtr(u.Role, o.Role) &&
		u.Privileges.Equal(o.Privileges)
}

func (u Update) Apply(s *User) {
	s.username = u.Username
	s.password = u.Password
	s.email = clonePtr(u.Email)
	s.role = clonePtr(u.Role)
	s.privileges = u.Privileges.Clone()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Role is the denormalized snapshot of a user's role.
type Role struct {
	ID         role.ID
	Name       role.Name
	Level      role.Level
	Privileges core.Privileges
}

// DetailedView is a stored user with its resolved role. Role is nil when
// the user has no role or the role is missing or quarantined.
type DetailedView struct {
	ID           ID
	User         User
	Role         *Role
	Version      vo.Version
	FirstVersion vo.Version
}

// AsRecord converts the view back into a record. FirstVersion and the role
// snapshot are dropped.
func (v *DetailedView) AsRecord() *Record {
	return model.NewRecord(v.ID, v.User, v.Version)
}

// GetUser looks a user up by id, username or email. A missing or
// quarantined user reads as nil.
type GetUser struct {
	id       *ID
	username *Username
	email    *Email
}

func GetUserByID(id ID) GetUser { return GetUser{id: &id} }

func GetUserByUsername(username Username) GetUser { return GetUser{username: &username} }

func GetUserByEmail(email Email) GetUser { return GetUser{email: &email} }

// WriteUser upserts Record together with its privilege set.
type WriteUser struct {
	Record *Record
}
