// Package role implements the Role entity and its read/write operations.
package role

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/core"
	"github.com/dmitrijs2005/recordkeeper/internal/model"
	"github.com/dmitrijs2005/recordkeeper/internal/vo"
)

const ModelName = "Role"

// Name is a role's unique display name: letters in single-space separated
// words, e.g. "DEVELOPER" or "Shift Lead".
type Name string

var ParseName = vo.Text[Name](vo.TextRule{
	Name:    "RoleName",
	Pattern: regexp.MustCompile(`^(\p{L}+\s)*\p{L}+$`),
})

func (n Name) String() string { return string(n) }

// Level ranks roles; unknown codes fall back to Guest.
type Level int16

const (
	Guest Level = iota
	Operator
	Manager
	Administrator
	Developer
)

var levelNames = map[Level]string{
	Guest:         "Guest",
	Operator:      "Operator",
	Manager:       "Manager",
	Administrator: "Administrator",
	Developer:     "Developer",
}

func LevelFromCode(code int16) Level {
	l := Level(code)
	if _, ok := levelNames[l]; !ok {
		return Guest
	}
	return l
}

// ParseLevel matches level names case-insensitively after trimming.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return Guest, common.NewInvalidValue("RoleLevel")
}

func (l Level) Code() int16 { return int16(l) }

func (l Level) String() string { return levelNames[LevelFromCode(int16(l))] }

// Role is the state of a role record.
type Role struct {
	name       Name
	level      Level
	privileges core.Privileges
}

type (
	ID     = vo.ID[Role, uuid.UUID]
	Record = model.Record[Role, uuid.UUID]
)

func (Role) ModelName() string { return ModelName }

func (Role) ParseKey(s string) (uuid.UUID, error) { return uuid.Parse(s) }

func ParseID(s string) (ID, error) { return vo.ParseID[Role, uuid.UUID](s) }

func (r Role) Name() Name { return r.name }

func (r Role) Level() Level { return r.level }

func (r Role) Privileges() core.Privileges { return r.privileges.Clone() }

// New validates raw inputs into a fresh role record with a new sortable id.
func New(name string, level Level, privileges []string, author uuid.UUID) (*Record, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	ps, err := core.ParsePrivileges(privileges)
	if err != nil {
		return nil, err
	}
	key, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	state := Role{name: n, level: level, privileges: ps}
	return model.NewRecord(vo.NewID[Role](key), state, vo.Now(author)), nil
}

// Update is the pending-update snapshot of a Role.
type Update struct {
	Name       Name
	Level      Level
	Privileges core.Privileges
}

func (r Role) Snapshot() Update {
	return Update{Name: r.name, Level: r.level, Privileges: r.privileges}
}

func (u Update) Clone() Update {
	u.Privileges = u.Privileges.Clone()
	return u
}

func (u Update) Equal(o Update) bool {
	return u.Name == o.Name && u.Level == o.Level && u.Privileges.Equal(o.Privileges)
}

func (u Update) Apply(r *Role) {
	r.name = u.Name
	r.level = u.Level
	r.privileges = u.Privileges.Clone()
}

// DetailedView is a stored role together with the version it was created
// with.
type DetailedView struct {
	ID           ID
	Role         Role
	Version      vo.Version
	FirstVersion vo.Version
}

// AsRecord converts the view back into a record. FirstVersion is dropped:
// records carry only their current version.
func (v *DetailedView) AsRecord() *Record {
	return model.NewRecord(v.ID, v.Role, v.Version)
}

// GetRole looks a role up by id or by name. A missing or quarantined role
// reads as nil.
type GetRole struct {
	id   *ID
	name *Name
}

func GetRoleByID(id ID) GetRole { return GetRole{id: &id} }

func GetRoleByName(name Name) GetRole { return GetRole{name: &name} }

// WriteRole upserts Record together with its privilege set.
type WriteRole struct {
	Record *Record
}
