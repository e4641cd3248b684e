package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/hdcview/internal/display"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/snapshot"
	"github.com/hpungsan/hdcview/internal/view"
)

// ErrUniqueConstraint is returned when an insert reuses an existing ID.
var ErrUniqueConstraint = &errors.HdcError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const fullColumns = `id, serial, source, label, package,
	display_json, views_json, view_count, created_at, deleted_at`

const summaryColumns = `id, serial, source, label, package,
	display_json, view_count, created_at, deleted_at`

// Insert stores a new snapshot.
func Insert(q Execer, s *snapshot.Snapshot) error {
	displayJSON, viewsJSON, err := encode(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapshots (
			id, serial, source, label, package,
			display_json, views_json, view_count, created_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.Exec(query,
		s.ID, s.Serial, s.Source, toNullString(s.Label), toNullString(s.Package),
		displayJSON, viewsJSON, s.ViewCount, s.CreatedAt, toNullInt64(s.DeletedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// UpdateFull overwrites every column of an existing snapshot, including
// deleted_at. Used by import in replace mode.
func UpdateFull(q Execer, s *snapshot.Snapshot) error {
	displayJSON, viewsJSON, err := encode(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE snapshots
		SET serial = ?, source = ?, label = ?, package = ?,
			display_json = ?, views_json = ?, view_count = ?,
			created_at = ?, deleted_at = ?
		WHERE id = ?
	`

	result, err := q.Exec(query,
		s.Serial, s.Source, toNullString(s.Label), toNullString(s.Package),
		displayJSON, viewsJSON, s.ViewCount,
		s.CreatedAt, toNullInt64(s.DeletedAt),
		s.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(s.ID)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports both PRIMARY KEY and UNIQUE violations this way
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a snapshot by its ULID.
// If includeDeleted is false, soft-deleted snapshots are excluded.
func GetByID(db *sql.DB, id string, includeDeleted bool) (*snapshot.Snapshot, error) {
	query := "SELECT " + fullColumns + " FROM snapshots WHERE id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	s, err := scanSnapshot(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return s, nil
}

// Exists reports whether a snapshot with the ID is stored, deleted or not.
func Exists(q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRow("SELECT 1 FROM snapshots WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// filter builds the shared WHERE clause for serial-scoped queries.
// A nil serial matches every device.
func filter(serial *string, includeDeleted bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if serial != nil {
		conds = append(conds, "serial = ?")
		args = append(args, *serial)
	}
	if !includeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// newestFirst orders by capture time; ULIDs break ties within a second.
const newestFirst = " ORDER BY created_at DESC, id DESC"

// GetLatestFull returns the most recent snapshot for a serial, or nil if
// there is none.
func GetLatestFull(db *sql.DB, serial *string, includeDeleted bool) (*snapshot.Snapshot, error) {
	where, args := filter(serial, includeDeleted)
	query := "SELECT " + fullColumns + " FROM snapshots" + where + newestFirst + " LIMIT 1"

	s, err := scanSnapshot(db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// GetLatestSummary is GetLatestFull without decoding the view tree.
func GetLatestSummary(db *sql.DB, serial *string, includeDeleted bool) (*snapshot.Summary, error) {
	where, args := filter(serial, includeDeleted)
	query := "SELECT " + summaryColumns + " FROM snapshots" + where + newestFirst + " LIMIT 1"

	s, err := scanSummary(db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListBySerial returns a page of summaries, newest first, plus the total
// number of matching snapshots.
func ListBySerial(db *sql.DB, serial *string, limit, offset int, includeDeleted bool) ([]snapshot.Summary, int, error) {
	where, args := filter(serial, includeDeleted)

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM snapshots"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := "SELECT " + summaryColumns + " FROM snapshots" + where + newestFirst + " LIMIT ? OFFSET ?"
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var summaries []snapshot.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

// SoftDelete marks a snapshot as deleted by setting deleted_at.
func SoftDelete(db *sql.DB, id string) error {
	now := time.Now().Unix()

	query := `
		UPDATE snapshots
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := db.Exec(query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	return nil
}

// PurgeDeleted permanently removes soft-deleted snapshots. A nil serial
// purges every device; olderThanDays restricts to snapshots deleted at
// least that many days ago.
func PurgeDeleted(db *sql.DB, serial *string, olderThanDays *int) (int, error) {
	query := "DELETE FROM snapshots WHERE deleted_at IS NOT NULL"
	var args []any

	if serial != nil {
		query += " AND serial = ?"
		args = append(args, *serial)
	}
	if olderThanDays != nil {
		cutoff := time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
		query += " AND deleted_at <= ?"
		args = append(args, cutoff)
	}

	result, err := db.Exec(query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// StreamForExport returns rows for export in capture order.
// The caller must close the rows and scan them with ScanSnapshotFromRows.
func StreamForExport(ctx context.Context, db *sql.DB, serial *string, includeDeleted bool) (*sql.Rows, error) {
	where, args := filter(serial, includeDeleted)
	query := "SELECT " + fullColumns + " FROM snapshots" + where + " ORDER BY created_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanSnapshotFromRows scans the current row of a StreamForExport result.
func ScanSnapshotFromRows(rows *sql.Rows) (*snapshot.Snapshot, error) {
	s, err := scanSnapshot(rows)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

func encode(s *snapshot.Snapshot) (string, string, error) {
	displayJSON, err := json.Marshal(s.Display)
	if err != nil {
		return "", "", errors.NewInternal(err)
	}
	viewsJSON, err := json.Marshal(s.Views)
	if err != nil {
		return "", "", errors.NewInternal(err)
	}
	return string(displayJSON), string(viewsJSON), nil
}

// scanSnapshot scans a full row and re-derives the children lists from the
// stored parent links.
func scanSnapshot(row scanner) (*snapshot.Snapshot, error) {
	var (
		s           snapshot.Snapshot
		label       sql.NullString
		pkg         sql.NullString
		displayJSON string
		viewsJSON   string
		deletedAt   sql.NullInt64
	)

	err := row.Scan(
		&s.ID, &s.Serial, &s.Source, &label, &pkg,
		&displayJSON, &viewsJSON, &s.ViewCount, &s.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Label = fromNullString(label)
	s.Package = fromNullString(pkg)
	if deletedAt.Valid {
		s.DeletedAt = &deletedAt.Int64
	}

	if err := json.Unmarshal([]byte(displayJSON), &s.Display); err != nil {
		return nil, err
	}
	var tree view.Tree
	if err := json.Unmarshal([]byte(viewsJSON), &tree); err != nil {
		return nil, err
	}
	if err := view.LinkChildren(tree); err != nil {
		return nil, err
	}
	s.Views = tree

	return &s, nil
}

func scanSummary(row scanner) (*snapshot.Summary, error) {
	var (
		s           snapshot.Summary
		label       sql.NullString
		pkg         sql.NullString
		displayJSON string
		deletedAt   sql.NullInt64
	)

	err := row.Scan(
		&s.ID, &s.Serial, &s.Source, &label, &pkg,
		&displayJSON, &s.ViewCount, &s.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Label = fromNullString(label)
	s.Package = fromNullString(pkg)
	if deletedAt.Valid {
		s.DeletedAt = &deletedAt.Int64
	}

	var info display.Info
	if err := json.Unmarshal([]byte(displayJSON), &info); err != nil {
		return nil, err
	}
	s.Display = info

	return &s, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
