package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	dev *device.Device
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, dev *device.Device) *Handlers {
	return &Handlers{db: db, cfg: cfg, dev: dev}
}

// Request types for each tool

// TargetRequest addresses a point directly or as a view's center.
type TargetRequest struct {
	X          *int   `json:"x,omitempty"`
	Y          *int   `json:"y,omitempty"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	TempID     *int   `json:"temp_id,omitempty"`
}

func (t TargetRequest) target() ops.Target {
	return ops.Target{X: t.X, Y: t.Y, SnapshotID: t.SnapshotID, TempID: t.TempID}
}

// TouchRequest represents the arguments for touch and long_touch.
type TouchRequest struct {
	TargetRequest
	Orientation *int `json:"orientation,omitempty"`
}

// DragRequest represents the arguments for drag.
type DragRequest struct {
	From        TargetRequest `json:"from"`
	To          TargetRequest `json:"to"`
	DurationMs  int           `json:"duration_ms,omitempty"`
	Orientation *int          `json:"orientation,omitempty"`
}

// PressRequest represents the arguments for press.
type PressRequest struct {
	Key string `json:"key"`
}

// TypeRequest represents the arguments for type.
type TypeRequest struct {
	Text        string         `json:"text"`
	Target      *TargetRequest `json:"target,omitempty"`
	Orientation *int           `json:"orientation,omitempty"`
}

// CaptureRequest represents the arguments for capture.
type CaptureRequest struct {
	Path   string  `json:"path,omitempty"`
	Serial string  `json:"serial,omitempty"`
	Label  *string `json:"label,omitempty"`
}

// FetchRequest represents the arguments for fetch.
type FetchRequest struct {
	ID             string `json:"id"`
	IncludeViews   *bool  `json:"include_views,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// LatestRequest represents the arguments for latest.
type LatestRequest struct {
	Serial         string `json:"serial,omitempty"`
	IncludeViews   *bool  `json:"include_views,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	Serial         string `json:"serial,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// SearchRequest represents the arguments for search.
type SearchRequest struct {
	ID             string `json:"id,omitempty"`
	Serial         string `json:"serial,omitempty"`
	Query          string `json:"query,omitempty"`
	Class          string `json:"class,omitempty"`
	ClickableOnly  bool   `json:"clickable_only,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// DeleteRequest represents the arguments for delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// PurgeRequest represents the arguments for purge.
type PurgeRequest struct {
	Serial        *string `json:"serial,omitempty"`
	OlderThanDays *int    `json:"older_than_days,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path           string  `json:"path,omitempty"`
	Serial         *string `json:"serial,omitempty"`
	IncludeDeleted bool    `json:"include_deleted,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleDisplay handles the display tool call.
func (h *Handlers) HandleDisplay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Display(ctx, h.dev)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTouch handles the touch tool call.
func (h *Handlers) HandleTouch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TouchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Touch(ctx, h.db, h.dev, ops.TouchInput{
		Target:      input.target(),
		Orientation: input.Orientation,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLongTouch handles the long_touch tool call.
func (h *Handlers) HandleLongTouch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TouchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LongTouch(ctx, h.db, h.dev, ops.TouchInput{
		Target:      input.target(),
		Orientation: input.Orientation,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDrag handles the drag tool call.
func (h *Handlers) HandleDrag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DragRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Drag(ctx, h.db, h.dev, ops.DragInput{
		From:        input.From.target(),
		To:          input.To.target(),
		DurationMs:  input.DurationMs,
		Orientation: input.Orientation,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePress handles the press tool call.
func (h *Handlers) HandlePress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Press(ctx, h.dev, ops.PressInput{Key: input.Key})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleType handles the type tool call.
func (h *Handlers) HandleType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TypeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	opsInput := ops.TypeInput{Text: input.Text, Orientation: input.Orientation}
	if input.Target != nil {
		t := input.Target.target()
		opsInput.Target = &t
	}
	result, err := ops.Type(ctx, h.db, h.dev, opsInput)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUnlock handles the unlock tool call.
func (h *Handlers) HandleUnlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Unlock(ctx, h.dev)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleApps handles the apps tool call.
func (h *Handlers) HandleApps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Apps(ctx, h.dev)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCapture handles the capture tool call.
func (h *Handlers) HandleCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaptureRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Capture(ctx, h.db, h.cfg, h.dev, ops.CaptureInput{
		Path:   input.Path,
		Serial: input.Serial,
		Label:  input.Label,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.db, ops.FetchInput{
		ID:             input.ID,
		IncludeViews:   input.IncludeViews,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLatest handles the latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LatestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(h.db, ops.LatestInput{
		Serial:         input.Serial,
		IncludeViews:   input.IncludeViews,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.db, ops.ListInput{
		Serial:         input.Serial,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(h.db, ops.SearchInput{
		ID:             input.ID,
		Serial:         input.Serial,
		Query:          input.Query,
		Class:          input.Class,
		ClickableOnly:  input.ClickableOnly,
		Limit:          input.Limit,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, ops.PurgeInput{
		Serial:        input.Serial,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:           input.Path,
		Serial:         input.Serial,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if hErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    hErr.Code,
			"message": err.Error(),
			"status":  hErr.Status,
		}
		if err == error(hErr) {
			errorObj["message"] = hErr.Message
		}
		if hErr.Code != errors.ErrInternal && hErr.Details != nil {
			errorObj["details"] = hErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
