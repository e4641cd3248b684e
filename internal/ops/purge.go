package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Serial        *string // optional filter by device serial
	OlderThanDays *int    // optional, only purge if deleted_at < (now - N days)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes soft-deleted snapshots.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("purge")
	}

	var serial *string
	if input.Serial != nil {
		serial = optionalSerial(*input.Serial)
	}

	count, err := db.PurgeDeleted(database, serial, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, serial, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, serial *string, olderThanDays *int) string {
	if count == 0 {
		return "No deleted snapshots to purge"
	}

	word := "snapshot"
	if count > 1 {
		word = "snapshots"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)

	if serial != nil {
		msg += fmt.Sprintf(" from device %q", *serial)
	}

	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}

	return msg
}
