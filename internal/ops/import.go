package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/db"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/snapshot"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // assign a new ID on collision
)

// maxImportLine bounds one JSONL record; a record carries a whole view tree.
const maxImportLine = 64 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importRecord is a parsed line ready to store.
type importRecord struct {
	line int
	snap *snapshot.Snapshot
}

// Import loads snapshots from a JSONL export file.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}

	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)

	// mode:error is all or nothing
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("import")
	}

	switch input.Mode {
	case ImportModeError:
		return importModeError(ctx, database, records)
	case ImportModeReplace:
		return importModeReplace(ctx, database, records, parseErrors)
	default:
		return importModeRename(ctx, database, records, parseErrors)
	}
}

// parseExportFile reads every record line, skipping the header. Lines that
// do not decode or do not hold a consistent tree become ImportErrors.
func parseExportFile(r io.Reader) ([]importRecord, []ImportError) {
	var (
		records     []importRecord
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record snapshot.ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if record.HdcviewExport {
			continue
		}

		if record.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}

		s, err := record.ToSnapshot()
		if err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}

		records = append(records, importRecord{line: lineNum, snap: s})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// importModeError imports all records in one transaction and rolls back on
// the first ID collision.
func importModeError(ctx context.Context, database *sql.DB, records []importRecord) (*ImportOutput, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range records {
		exists, err := db.Exists(tx, r.snap.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			err = db.Insert(tx, r.snap)
		}
		// A repeated ID inside the file surfaces as a constraint failure
		if exists || err == db.ErrUniqueConstraint {
			return &ImportOutput{
				Errors: []ImportError{{
					Line:    r.line,
					ID:      r.snap.ID,
					Code:    "ID_COLLISION",
					Message: fmt.Sprintf("snapshot with id %q already exists", r.snap.ID),
				}},
			}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ImportOutput{
		Imported: len(records),
		Errors:   []ImportError{},
	}, nil
}

// importModeReplace overwrites snapshots whose ID already exists.
func importModeReplace(ctx context.Context, database *sql.DB, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{
		Skipped: len(parseErrors),
		Errors:  append([]ImportError{}, parseErrors...),
	}

	for _, r := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		exists, err := db.Exists(database, r.snap.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			err = db.UpdateFull(database, r.snap)
		} else {
			err = db.Insert(database, r.snap)
		}
		if err != nil {
			return nil, err
		}
		out.Imported++
	}

	return out, nil
}

// importModeRename stores colliding snapshots under a fresh ULID.
func importModeRename(ctx context.Context, database *sql.DB, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{
		Skipped: len(parseErrors),
		Errors:  append([]ImportError{}, parseErrors...),
	}

	for _, r := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		exists, err := db.Exists(database, r.snap.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			id, err := newULID()
			if err != nil {
				return nil, err
			}
			r.snap.ID = id
		}

		if err := db.Insert(database, r.snap); err != nil {
			out.Errors = append(out.Errors, ImportError{
				Line:    r.line,
				ID:      r.snap.ID,
				Code:    "INSERT_FAILED",
				Message: fmt.Sprintf("failed to insert: %v", err),
			})
			out.Skipped++
			continue
		}
		out.Imported++
	}

	return out, nil
}
