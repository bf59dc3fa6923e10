package vo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// Version is the audit stamp of a record: who wrote it and when.
// It orders by timestamp first and author second. It is not a
// concurrency token.
type Version struct {
	author    uuid.UUID
	timestamp time.Time
}

// precision matches the timestamp column so that stamps survive a round trip
// through storage unchanged.
const precision = time.Microsecond

// NewVersion rebuilds a version from untrusted data. A timestamp strictly
// after the current wall clock is rejected.
func NewVersion(author uuid.UUID, timestamp time.Time) (Version, error) {
	if timestamp.After(time.Now()) {
		return Version{}, common.NewInvalidValue("Version")
	}
	return Version{author: author, timestamp: timestamp.UTC().Truncate(precision)}, nil
}

// Now stamps a new version for author at the current time.
func Now(author uuid.UUID) Version {
	return Version{author: author, timestamp: time.Now().UTC().Truncate(precision)}
}

func (v Version) Author() uuid.UUID {
	return v.author
}

func (v Version) Timestamp() time.Time {
	return v.timestamp
}

func (v Version) Equal(o Version) bool {
	return v.author == o.author && v.timestamp.Equal(o.timestamp)
}

// Compare returns -1, 0 or +1 ordering by (timestamp, author).
func (v Version) Compare(o Version) int {
	if c := v.timestamp.Compare(o.timestamp); c != 0 {
		return c
	}
	for i := range v.author {
		switch {
		case v.author[i] < o.author[i]:
			return -1
		case v.author[i] > o.author[i]:
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%s@%s", v.author, v.timestamp.Format(time.RFC3339Nano))
}
