package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/hdcview/internal/config"
	"github.com/hpungsan/hdcview/internal/device"
	"github.com/hpungsan/hdcview/internal/errors"
	"github.com/hpungsan/hdcview/internal/ops"
	"github.com/hpungsan/hdcview/internal/web"
)

// stdout is where command output goes; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, dev *device.Device) *cli.App {
	app := &cli.App{
		Name:    "hdcview",
		Usage:   "Capture, browse and drive HarmonyOS UI layouts",
		Version: Version,
		Commands: []*cli.Command{
			displayCmd(dev),
			captureCmd(db, cfg, dev),
			fetchCmd(db),
			latestCmd(db),
			listCmd(db),
			treeCmd(db),
			searchCmd(db),
			deleteCmd(db),
			purgeCmd(db),
			exportCmd(db, cfg),
			importCmd(db, cfg),
			touchCmd(db, dev, "touch", "Tap a point or a view's center", ops.Touch),
			touchCmd(db, dev, "long-touch", "Long-press a point or a view's center", ops.LongTouch),
			dragCmd(db, dev),
			pressCmd(dev),
			typeCmd(db, dev),
			unlockCmd(dev),
			appsCmd(dev),
			webCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// displayCmd creates the display command.
func displayCmd(dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:  "display",
		Usage: "Show the device's display size, orientation and density",
		Action: func(c *cli.Context) error {
			output, err := ops.Display(c.Context, dev)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// captureCmd creates the capture command.
func captureCmd(db *sql.DB, cfg *config.Config, dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Capture the current layout (or a local dump file) as a snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Aliases: []string{"f"}, Usage: "Local .json layout dump instead of the device"},
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Serial recorded for a --from capture (default: \"default\")"},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Snapshot label"},
		},
		Action: func(c *cli.Context) error {
			input := ops.CaptureInput{
				Path:   c.String("from"),
				Serial: c.String("serial"),
			}
			if c.IsSet("label") {
				label := c.String("label")
				input.Label = &label
			}

			output, err := ops.Capture(c.Context, db, cfg, dev, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a snapshot by ID",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted snapshots"},
			&cli.BoolFlag{Name: "no-views", Usage: "Exclude the view tree from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{
				ID:             c.Args().First(),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if c.Bool("no-views") {
				includeViews := false
				input.IncludeViews = &includeViews
			}

			output, err := ops.Fetch(db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Show the most recent snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Filter by device serial"},
			&cli.BoolFlag{Name: "include-views", Usage: "Include the view tree"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted snapshots"},
		},
		Action: func(c *cli.Context) error {
			input := ops.LatestInput{
				Serial:         c.String("serial"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if c.Bool("include-views") {
				includeViews := true
				input.IncludeViews = &includeViews
			}

			output, err := ops.Latest(db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List snapshots, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Filter by device serial"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted snapshots"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(db, ops.ListInput{
				Serial:         c.String("serial"),
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// treeCmd creates the tree command.
func treeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Print a snapshot's view tree as an indented outline",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Use the latest snapshot of this device when no ID is given"},
			&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Value: 60, Usage: "Truncate labels wider than this many columns (0 disables)"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted snapshots"},
		},
		Action: func(c *cli.Context) error {
			includeDeleted := c.Bool("include-deleted")

			if id := c.Args().First(); id != "" {
				output, err := ops.Fetch(db, ops.FetchInput{ID: id, IncludeDeleted: includeDeleted})
				if err != nil {
					return outputError(err)
				}
				_, err = io.WriteString(stdout, output.Views.Outline(c.Int("width")))
				return err
			}

			includeViews := true
			output, err := ops.Latest(db, ops.LatestInput{
				Serial:         c.String("serial"),
				IncludeViews:   &includeViews,
				IncludeDeleted: includeDeleted,
			})
			if err != nil {
				return outputError(err)
			}
			if output.Item == nil {
				return outputError(errors.NewNotFound("latest snapshot"))
			}
			_, err = io.WriteString(stdout, output.Item.Views.Outline(c.Int("width")))
			return err
		},
	}
}

// searchCmd creates the search command.
func searchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find views by text, content description, id or class",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Snapshot ID (default: latest)"},
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Use the latest snapshot of this device"},
			&cli.StringFlag{Name: "class", Aliases: []string{"c"}, Usage: "Exact class name, case-insensitive"},
			&cli.BoolFlag{Name: "clickable", Usage: "Only clickable views"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Max items to return"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted snapshots"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(db, ops.SearchInput{
				ID:             c.String("id"),
				Serial:         c.String("serial"),
				Query:          strings.Join(c.Args().Slice(), " "),
				Class:          c.String("class"),
				ClickableOnly:  c.Bool("clickable"),
				Limit:          c.Int("limit"),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a snapshot",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Filter by device serial"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if serial := c.String("serial"); serial != "" {
				input.Serial = &serial
			}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export snapshots to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.hdcview/exports/<serial>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Filter by device serial"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted snapshots"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:           c.String("path"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if serial := c.String("serial"); serial != "" {
				input.Serial = &serial
			}

			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import snapshots from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// touchOp is ops.Touch or ops.LongTouch.
type touchOp func(context.Context, *sql.DB, *device.Device, ops.TouchInput) (*ops.TouchOutput, error)

// targetFlags address a view of a stored snapshot instead of coordinates.
func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "snapshot", Usage: "Snapshot ID holding the target view"},
		&cli.IntFlag{Name: "orientation", Usage: "Orientation (0-3) the coordinates were authored in"},
	}
}

// touchCmd creates the touch and long-touch commands.
func touchCmd(db *sql.DB, dev *device.Device, name, usage string, run touchOp) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<x> <y> | --snapshot <id> --view <temp_id>",
		Flags: append(targetFlags(),
			&cli.IntFlag{Name: "view", Usage: "temp_id of the target view"},
		),
		Action: func(c *cli.Context) error {
			args := c.Args().Slice()
			target, rest, err := parseTarget(c, "view", args)
			if err != nil {
				return outputError(err)
			}
			if len(rest) > 0 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unexpected arguments: %s", strings.Join(rest, " "))))
			}

			output, err := run(c.Context, db, dev, ops.TouchInput{
				Target:      target,
				Orientation: optionalInt(c, "orientation"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// dragCmd creates the drag command.
func dragCmd(db *sql.DB, dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:      "drag",
		Usage:     "Drag between two points or view centers",
		ArgsUsage: "[<x1> <y1>] [<x2> <y2>]",
		Flags: append(targetFlags(),
			&cli.IntFlag{Name: "from-view", Usage: "temp_id of the start view"},
			&cli.IntFlag{Name: "to-view", Usage: "temp_id of the end view"},
			&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Value: ops.DefaultDragDurationMs, Usage: "Duration in milliseconds"},
		),
		Action: func(c *cli.Context) error {
			from, rest, err := parseTarget(c, "from-view", c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			to, rest, err := parseTarget(c, "to-view", rest)
			if err != nil {
				return outputError(err)
			}
			if len(rest) > 0 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unexpected arguments: %s", strings.Join(rest, " "))))
			}

			output, err := ops.Drag(c.Context, db, dev, ops.DragInput{
				From:        from,
				To:          to,
				DurationMs:  c.Int("duration"),
				Orientation: optionalInt(c, "orientation"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// pressCmd creates the press command.
func pressCmd(dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:      "press",
		Usage:     "Send a key event (e.g. Back, Home)",
		ArgsUsage: "<key>",
		Action: func(c *cli.Context) error {
			output, err := ops.Press(c.Context, dev, ops.PressInput{Key: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// typeCmd creates the type command.
func typeCmd(db *sql.DB, dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:      "type",
		Usage:     "Enter text into the focused field, or into a target field",
		ArgsUsage: "<text>",
		Flags: append(targetFlags(),
			&cli.IntFlag{Name: "view", Usage: "temp_id of the field to type into"},
			&cli.IntFlag{Name: "x", Usage: "X coordinate of the field"},
			&cli.IntFlag{Name: "y", Usage: "Y coordinate of the field"},
		),
		Action: func(c *cli.Context) error {
			input := ops.TypeInput{
				Text:        strings.Join(c.Args().Slice(), " "),
				Orientation: optionalInt(c, "orientation"),
			}
			switch {
			case c.IsSet("view"):
				tempID := c.Int("view")
				input.Target = &ops.Target{SnapshotID: c.String("snapshot"), TempID: &tempID}
			case c.IsSet("x") || c.IsSet("y"):
				input.Target = &ops.Target{X: optionalInt(c, "x"), Y: optionalInt(c, "y")}
			}

			output, err := ops.Type(c.Context, db, dev, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// unlockCmd creates the unlock command.
func unlockCmd(dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:  "unlock",
		Usage: "Dismiss the lock screen (Home, then Back)",
		Action: func(c *cli.Context) error {
			output, err := ops.Unlock(c.Context, dev)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// appsCmd creates the apps command.
func appsCmd(dev *device.Device) *cli.Command {
	return &cli.Command{
		Name:  "apps",
		Usage: "List installed bundles",
		Action: func(c *cli.Context) error {
			output, err := ops.Apps(c.Context, dev)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the snapshot browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// parseTarget builds a target from the view flag when set (with --snapshot),
// otherwise from the first two positional arguments. It returns the
// arguments left over.
func parseTarget(c *cli.Context, viewFlag string, args []string) (ops.Target, []string, error) {
	if c.IsSet(viewFlag) {
		tempID := c.Int(viewFlag)
		return ops.Target{SnapshotID: c.String("snapshot"), TempID: &tempID}, args, nil
	}
	if len(args) < 2 {
		return ops.Target{}, args, errors.NewInvalidRequest(fmt.Sprintf("expected x and y, or --snapshot and --%s", viewFlag))
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return ops.Target{}, args, errors.NewInvalidRequest(fmt.Sprintf("invalid x coordinate: %q", args[0]))
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return ops.Target{}, args, errors.NewInvalidRequest(fmt.Sprintf("invalid y coordinate: %q", args[1]))
	}
	return ops.Target{X: &x, Y: &y}, args[2:], nil
}

// optionalInt returns the flag's value only when it was given.
func optionalInt(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if hErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", hErr.Code, hErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
