package store

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lowercase ULID. IDs minted in the same millisecond still
// sort in creation order.
func NewID() string {
	idMu.Lock()
	id := ulid.MustNew(ulid.Now(), idEntropy)
	idMu.Unlock()
	return strings.ToLower(id.String())
}

// IDTime recovers the mint time of an id from NewID.
func IDTime(id string) (time.Time, bool) {
	u, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
