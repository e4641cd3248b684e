package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	renderer *Renderer
}

// HandleList handles GET /snapshots: list snapshots, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial")

	input := ops.ListInput{
		Serial:         serial,
		Limit:          parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.List(h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Snapshots",
			Version: h.renderer.version,
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Serial:     serial,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleDetail handles GET /snapshots/{id}: one snapshot with its view tree.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("snapshot ID is required"))
		return
	}

	snap, err := ops.Fetch(h.db, ops.FetchInput{
		ID:             id,
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, snap)
		return
	}

	name := displayName(snap.Label, snap.ID)
	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   name,
			Version: h.renderer.version,
		},
		Snapshot:     snap,
		RenderedTree: renderMarkdown(snap.Views.Markdown()),
		DisplayName:  name,
	})
}

// HandleSearch handles GET /snapshots/{id}/search: views matching q, class
// or clickable.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("snapshot ID is required"))
		return
	}

	q := r.URL.Query()
	input := ops.SearchInput{
		ID:             id,
		Query:          q.Get("q"),
		Class:          q.Get("class"),
		ClickableOnly:  parseBoolParam(r, "clickable"),
		Limit:          parseIntParam(r, "limit", ops.DefaultSearchLimit),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.Search(h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "search", SearchPageData{
		PageData: PageData{
			Title:   "Search " + id,
			Version: h.renderer.version,
		},
		SnapshotID: id,
		Query:      input.Query,
		Class:      input.Class,
		Clickable:  input.ClickableOnly,
		Result:     result,
	})
}

// HandleDelete handles DELETE /snapshots/{id}: soft-delete a snapshot.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("snapshot ID is required"))
		return
	}

	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/snapshots", http.StatusFound)
}

// HandlePurge handles POST /snapshots/purge: permanently delete soft-deleted snapshots.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	input := ops.PurgeInput{
		Serial: ptrString(r.FormValue("serial")),
	}

	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.Purge(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/snapshots?include_deleted=true", http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// displayName returns the snapshot label if present, or a truncated ID.
func displayName(label *string, id string) string {
	if label != nil && *label != "" {
		return *label
	}
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
