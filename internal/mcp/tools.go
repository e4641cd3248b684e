package mcp

import "github.com/mark3labs/mcp-go/mcp"

// targetProperties describes a gesture target: either x/y or a view in a
// stored snapshot.
var targetProperties = map[string]any{
	"x":           map[string]any{"type": "integer", "description": "X coordinate"},
	"y":           map[string]any{"type": "integer", "description": "Y coordinate"},
	"snapshot_id": map[string]any{"type": "string", "description": "Snapshot holding the target view"},
	"temp_id":     map[string]any{"type": "integer", "description": "temp_id of the target view; its bounds center is used"},
}

var orientationOption = mcp.WithNumber("orientation",
	mcp.Description("Orientation (0-3) the coordinates were authored in. Defaults to the snapshot's orientation for view targets, else the live orientation."),
)

var displayToolDef = mcp.NewTool("device_display",
	mcp.WithDescription("Report the connected device's display width, height, orientation and density, with the source each value was resolved from."),
)

var touchToolDef = mcp.NewTool("device_touch",
	mcp.WithDescription("Tap a point, or the center of a view from a stored snapshot. Coordinates are rotated into the device's current orientation."),
	mcp.WithNumber("x", mcp.Description("X coordinate")),
	mcp.WithNumber("y", mcp.Description("Y coordinate")),
	mcp.WithString("snapshot_id", mcp.Description("Snapshot holding the target view")),
	mcp.WithNumber("temp_id", mcp.Description("temp_id of the target view")),
	orientationOption,
)

var longTouchToolDef = mcp.NewTool("device_long_touch",
	mcp.WithDescription("Long-press a point, or the center of a view from a stored snapshot."),
	mcp.WithNumber("x", mcp.Description("X coordinate")),
	mcp.WithNumber("y", mcp.Description("Y coordinate")),
	mcp.WithString("snapshot_id", mcp.Description("Snapshot holding the target view")),
	mcp.WithNumber("temp_id", mcp.Description("temp_id of the target view")),
	orientationOption,
)

var dragToolDef = mcp.NewTool("device_drag",
	mcp.WithDescription("Drag from one target to another."),
	mcp.WithObject("from", mcp.Required(), mcp.Description("Start target"), mcp.Properties(targetProperties)),
	mcp.WithObject("to", mcp.Required(), mcp.Description("End target"), mcp.Properties(targetProperties)),
	mcp.WithNumber("duration_ms", mcp.Description("Drag duration in milliseconds (default: 300)")),
	orientationOption,
)

var pressToolDef = mcp.NewTool("device_press",
	mcp.WithDescription("Send a key event, e.g. Back or Home."),
	mcp.WithString("key", mcp.Required(), mcp.Description("Key name or key code")),
)

var typeToolDef = mcp.NewTool("device_type",
	mcp.WithDescription("Enter text into the focused field, or click a target field first and type into it."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to enter")),
	mcp.WithObject("target", mcp.Description("Field to type into"), mcp.Properties(targetProperties)),
	orientationOption,
)

var unlockToolDef = mcp.NewTool("device_unlock",
	mcp.WithDescription("Dismiss the lock screen by pressing Home then Back."),
)

var appsToolDef = mcp.NewTool("device_apps",
	mcp.WithDescription("List the bundle names installed on the device."),
)

var captureToolDef = mcp.NewTool("snapshot_capture",
	mcp.WithDescription("Dump the current UI layout (or read a local layout dump) into a flat view tree and store it as a snapshot."),
	mcp.WithString("path", mcp.Description("Local .json layout dump. Omit to capture from the device.")),
	mcp.WithString("serial", mcp.Description("Serial recorded for a file capture (default: \"default\")")),
	mcp.WithString("label", mcp.Description("Optional label")),
)

var fetchToolDef = mcp.NewTool("snapshot_fetch",
	mcp.WithDescription("Fetch a snapshot by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Snapshot ID")),
	mcp.WithBoolean("include_views", mcp.Description("Include the view tree (default: true)")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted snapshots")),
)

var latestToolDef = mcp.NewTool("snapshot_latest",
	mcp.WithDescription("Return the most recent snapshot, optionally for one device."),
	mcp.WithString("serial", mcp.Description("Device serial filter")),
	mcp.WithBoolean("include_views", mcp.Description("Include the view tree (default: false)")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted snapshots")),
)

var listToolDef = mcp.NewTool("snapshot_list",
	mcp.WithDescription("List snapshot summaries, newest first."),
	mcp.WithString("serial", mcp.Description("Device serial filter")),
	mcp.WithNumber("limit", mcp.Description("Page size (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted snapshots")),
)

var searchToolDef = mcp.NewTool("snapshot_search",
	mcp.WithDescription("Find views in a snapshot by text, content description, id, class or clickability. Defaults to the latest snapshot."),
	mcp.WithString("id", mcp.Description("Snapshot ID (default: latest)")),
	mcp.WithString("serial", mcp.Description("Device serial used to pick the latest snapshot")),
	mcp.WithString("query", mcp.Description("Case-insensitive substring of text, content description or id")),
	mcp.WithString("class", mcp.Description("Exact class name, case-insensitive")),
	mcp.WithBoolean("clickable_only", mcp.Description("Only clickable views")),
	mcp.WithNumber("limit", mcp.Description("Max items (default: 20, max: 100)")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted snapshots")),
)

var deleteToolDef = mcp.NewTool("snapshot_delete",
	mcp.WithDescription("Soft-delete a snapshot."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Snapshot ID")),
)

var purgeToolDef = mcp.NewTool("snapshot_purge",
	mcp.WithDescription("Permanently remove soft-deleted snapshots."),
	mcp.WithString("serial", mcp.Description("Device serial filter")),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge snapshots deleted more than this many days ago")),
)

var exportToolDef = mcp.NewTool("snapshot_export",
	mcp.WithDescription("Export snapshots to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default: ~/.hdcview/exports/<serial>-<timestamp>.jsonl)")),
	mcp.WithString("serial", mcp.Description("Device serial filter")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted snapshots")),
)

var importToolDef = mcp.NewTool("snapshot_import",
	mcp.WithDescription("Import snapshots from a JSONL export file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input .jsonl path")),
	mcp.WithString("mode", mcp.Description("Collision handling"), mcp.Enum("error", "replace", "rename")),
)
