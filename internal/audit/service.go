package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// There is deliberately no free-standing append service here: an entry
// written outside the transaction it describes could survive a rollback (a
// phantom entry) or be retried into a duplicate. Callers Prepare an entry and
// hand it to their transaction's append (InsertTx for Postgres, the memory
// store's append in tests).

var ErrInvalidEntry = errors.New("audit: invalid entry")

// Prepare validates an entry and fills in generated fields. The returned
// entry is ready to append inside the caller's transaction.
func Prepare(e Entry, now time.Time) (Entry, error) {
	if e.Category == "" {
		return Entry{}, ErrInvalidEntry
	}
	if e.Action == "" {
		return Entry{}, ErrInvalidEntry
	}
	if e.ActorID == "" {
		return Entry{}, ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	return e, nil
}
