package ops

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/hdcview/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// optionalSerial trims a serial filter; blank means every device.
func optionalSerial(serial string) *string {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil
	}
	return &serial
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newULID returns a ULID that sorts after every ID issued earlier by this
// process, even within the same millisecond.
func newULID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}

// orientationOrUnspecified validates an optional orientation argument.
func orientationOrUnspecified(o *int) (int, error) {
	if o == nil {
		return -1, nil
	}
	if *o < 0 || *o > 3 {
		return 0, errors.NewInvalidRequest("orientation must be 0, 1, 2 or 3")
	}
	return *o, nil
}
