/*
Package uid generates ULIDs: lexicographically sortable document ids
with millisecond timestamp prefixes, encoded in Crockford base-32.
*/
package uid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Crockford base-32 alphabet (excludes I, L, O, U).
const letters = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	timeLen   = 10
	randomLen = 16
)

// ULID is a Universal Unique Lexicographically Sortable Identifier.
// Ids generated in a later millisecond sort after ids generated in an
// earlier one; within one millisecond the random suffix decides the
// order. Tables keyed by local id therefore list documents in rough
// insertion order.
// https://github.com/ulid/spec
type ULID struct {
	when time.Time
}

// New creates a ULID for the current time.
func New() *ULID { return &ULID{when: time.Now()} }

// NewAt creates a ULID for the given time, for deterministic tests.
func NewAt(t time.Time) *ULID { return &ULID{when: t} }

// String encodes the ULID as a 26-character string: 10 characters of
// timestamp followed by 16 characters of randomness.
func (u *ULID) String() string {
	return u.encodeTime() + u.encodeRandom()
}

func (u *ULID) encodeTime() string {
	ms := u.when.UnixMilli()
	b := make([]byte, timeLen)
	for i := timeLen - 1; i >= 0; i-- {
		b[i] = letters[ms%int64(len(letters))]
		ms /= int64(len(letters))
	}
	return string(b)
}

func (u *ULID) encodeRandom() string {
	buf := make([]byte, randomLen)
	if _, err := rand.Read(buf); err != nil {
		panic("uid: crypto/rand read failed: " + err.Error())
	}
	out := make([]byte, randomLen)
	for i := 0; i < randomLen; i++ {
		out[i] = letters[int(buf[i])%len(letters)]
	}
	return string(out)
}

// Decode extracts the millisecond timestamp from a ULID string.
func Decode(s string) (int64, error) {
	if len(s) != timeLen+randomLen {
		return 0, fmt.Errorf("uid: invalid ULID length %d", len(s))
	}
	var ms int64
	for _, c := range []byte(s[:timeLen]) {
		idx := strings.IndexByte(letters, c)
		if idx < 0 {
			return 0, fmt.Errorf("uid: invalid ULID char %q", c)
		}
		ms = ms*int64(len(letters)) + int64(idx)
	}
	return ms, nil
}
