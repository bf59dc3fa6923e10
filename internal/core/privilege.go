// Package core holds the value objects shared by the domain entities and
// groups the role, user and device packages.
package core

import (
	"regexp"
	"sort"

	"github.com/dmitrijs2005/recordkeeper/internal/vo"
)

// Privilege is an upper-case privilege name such as "MANAGE USERS".
type Privilege string

var ParsePrivilege = vo.Text[Privilege](vo.TextRule{
	Name:    "Privilege",
	Pattern: regexp.MustCompile(`^([A-Z]+\s)*[A-Z]+$`),
	Min:     4,
	Max:     32,
})

func (p Privilege) String() string { return string(p) }

// Privileges is an unordered set of unique privileges.
type Privileges map[Privilege]struct{}

func NewPrivileges(ps ...Privilege) Privileges {
	set := make(Privileges, len(ps))
	for _, p := range ps {
		set[p] = struct{}{}
	}
	return set
}

// ParsePrivileges validates every raw name; the first invalid one fails the
// whole set.
func ParsePrivileges(raw []string) (Privileges, error) {
	set := make(Privileges, len(raw))
	for _, s := range raw {
		p, err := ParsePrivilege(s)
		if err != nil {
			return nil, err
		}
		set[p] = struct{}{}
	}
	return set, nil
}

func (s Privileges) Has(p Privilege) bool {
	_, ok := s[p]
	return ok
}

func (s Privileges) Clone() Privileges {
	out := make(Privileges, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

func (s Privileges) Equal(o Privileges) bool {
	if len(s) != len(o) {
		return false
	}
	for p := range s {
		if !o.Has(p) {
			return false
		}
	}
	return true
}

// Strings returns the set sorted, ready to be bound as a text[] parameter.
func (s Privileges) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// Catalog maps group privileges to the privileges they grant.
var Catalog = map[Privilege][]Privilege{
	"MANAGE USERS": {"REGISTER USER", "GET USER DETAILS"},
	"MANAGE ROLES": {"REGISTER ROLES", "GET USER DETAILS"},
}

// Expand returns s together with everything its group privileges grant.
func Expand(s Privileges) Privileges {
	out := s.Clone()
	for p := range s {
		for _, granted := range Catalog[p] {
			out[granted] = struct{}{}
		}
	}
	return out
}
