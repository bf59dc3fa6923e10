package vo

import (
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// Key is a backend-native identifier value: a UUID, a token, anything
// comparable with a canonical string form.
type Key interface {
	comparable
	String() string
}

// Identifiable is implemented by every entity kind. ModelName is the stable
// name used in error messages and quarantine entries; ParseKey parses the
// entity's key syntax.
type Identifiable[K Key] interface {
	ModelName() string
	ParseKey(s string) (K, error)
}

// ID is an identifier bound to exactly one entity kind M.
type ID[M Identifiable[K], K Key] struct {
	key K
}

func NewID[M Identifiable[K], K Key](key K) ID[M, K] {
	return ID[M, K]{key: key}
}

// ParseID parses s with M's key syntax. On failure the error names
// "<Model> ID".
func ParseID[M Identifiable[K], K Key](s string) (ID[M, K], error) {
	var m M
	key, err := m.ParseKey(s)
	if err != nil {
		return ID[M, K]{}, common.NewInvalidValue(m.ModelName() + " ID")
	}
	return ID[M, K]{key: key}, nil
}

func (id ID[M, K]) Key() K {
	return id.key
}

func (id ID[M, K]) String() string {
	return id.key.String()
}

// Compare orders identifiers by their canonical string form, which for
// UUIDs is the same as byte order.
func (id ID[M, K]) Compare(o ID[M, K]) int {
	return strings.Compare(id.key.String(), o.key.String())
}
