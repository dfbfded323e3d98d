package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/formcraft/internal/designer"
	"github.com/hpungsan/formcraft/internal/errors"
	"github.com/hpungsan/formcraft/internal/fields"
	"github.com/hpungsan/formcraft/internal/ops"
	"github.com/hpungsan/formcraft/internal/web"
)

// maxStdinBytes caps attribute payloads read from stdin.
const maxStdinBytes = 1 << 20

// Prompt hooks, replaced in tests.
var (
	askOne      = survey.AskOne
	interactive = isTerminal
)

// newCLIApp creates the CLI application with all commands. svc may be nil
// when only help or version output is needed.
func newCLIApp(svc *ops.Service, logger *slog.Logger) *cli.App {
	app := &cli.App{
		Name:    "formcraft",
		Usage:   "Form designer and submission collector",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "Act as this owner (default: config owner)"},
		},
		Commands: []*cli.Command{
			createCmd(svc),
			listCmd(svc),
			getCmd(svc),
			designCmd(svc),
			paletteCmd(svc),
			dropCmd(svc),
			updateElementCmd(svc),
			removeElementCmd(svc),
			publishCmd(svc),
			deleteCmd(svc),
			purgeCmd(svc),
			statsCmd(svc),
			submissionsCmd(svc),
			exportCmd(svc),
			importCmd(svc),
			serveCmd(svc, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// owner resolves the acting owner: --owner, then the configured owner.
func owner(c *cli.Context, svc *ops.Service) string {
	if o := c.String("owner"); o != "" {
		return o
	}
	return svc.Config().Owner
}

// formID returns the positional form id.
func formID(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.NewInvalidRequest("form id is required")
	}
	return c.Args().First(), nil
}

// baseVersion returns --base-version when it was given.
func baseVersion(c *cli.Context) *int64 {
	if !c.IsSet("base-version") {
		return nil
	}
	v := c.Int64("base-version")
	return &v
}

func createCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a draft form (prompts for missing values in a terminal)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Form name"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Form description"},
		},
		Action: func(c *cli.Context) error {
			input := ops.CreateInput{
				Owner:       owner(c, svc),
				Name:        c.String("name"),
				Description: c.String("description"),
			}
			if input.Name == "" && interactive() {
				if err := askOne(&survey.Input{Message: "Form name:"}, &input.Name, survey.WithValidator(survey.Required)); err != nil {
					return outputError(errors.NewCancelled("create"))
				}
				if !c.IsSet("description") {
					if err := askOne(&survey.Input{Message: "Description (optional):"}, &input.Description); err != nil {
						return outputError(errors.NewCancelled("create"))
					}
				}
			}

			output, err := svc.CreateForm(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func listCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List forms, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.ListForms(c.Context, ops.ListInput{
				Owner:  owner(c, svc),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func getCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a form with its statistics",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.GetForm(c.Context, owner(c, svc), id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// designOutput is the design command's output.
type designOutput struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Published      bool             `json:"published"`
	ContentVersion int64            `json:"content_version"`
	Elements       []fields.Element `json:"elements"`
}

func designCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "design",
		Usage:     "Show a form's elements and content version",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			d, err := svc.LoadForEditing(c.Context, owner(c, svc), id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(designOutput{
				ID:             d.Form.ID,
				Name:           d.Form.Name,
				Published:      d.Form.Published,
				ContentVersion: d.ContentVersion,
				Elements:       d.Tree.Snapshot(),
			})
		},
	}
}

func paletteCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "palette",
		Usage: "List the field types available to drop",
		Action: func(c *cli.Context) error {
			return outputJSON(svc.Palette())
		},
	}
}

func dropCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "drop",
		Usage:     "Drop a palette field or move an element",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "field-type", Aliases: []string{"f"}, Usage: "Palette field type to add"},
			&cli.StringFlag{Name: "element", Aliases: []string{"e"}, Usage: "Existing element id to move"},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Value: "canvas", Usage: "Drop target: canvas|before|after"},
			&cli.StringFlag{Name: "target-id", Usage: "Anchor element for before/after"},
			&cli.Int64Flag{Name: "base-version", Usage: "Fail if the content version moved on"},
		},
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			fieldType, elementID := c.String("field-type"), c.String("element")
			if (fieldType == "") == (elementID == "") {
				return outputError(errors.NewInvalidRequest("exactly one of --field-type or --element is required"))
			}
			src := designer.ElementSource(elementID)
			if fieldType != "" {
				src = designer.PaletteSource(fields.FieldType(fieldType))
			}

			output, err := svc.ApplyDrop(c.Context, ops.DropInput{
				Owner:       owner(c, svc),
				ID:          id,
				Source:      src,
				Target:      c.String("target"),
				TargetID:    c.String("target-id"),
				BaseVersion: baseVersion(c),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func updateElementCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "update-element",
		Usage:     "Replace an element's attributes (JSON object via --attributes or stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "element", Aliases: []string{"e"}, Required: true, Usage: "Element id"},
			&cli.StringFlag{Name: "attributes", Aliases: []string{"a"}, Usage: "Attributes as a JSON object"},
			&cli.Int64Flag{Name: "base-version", Usage: "Fail if the content version moved on"},
		},
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			raw := c.String("attributes")
			if raw == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("attributes must be passed with --attributes or piped via stdin"))
				}
				if raw, err = readStdin(maxStdinBytes); err != nil {
					return outputError(err)
				}
			}
			attrs, err := parseAttributes(raw)
			if err != nil {
				return outputError(err)
			}

			output, err := svc.UpdateElement(c.Context, ops.UpdateElementInput{
				Owner:       owner(c, svc),
				ID:          id,
				ElementID:   c.String("element"),
				Attributes:  attrs,
				BaseVersion: baseVersion(c),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func removeElementCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "remove-element",
		Usage:     "Remove an element from a draft",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "element", Aliases: []string{"e"}, Required: true, Usage: "Element id"},
			&cli.Int64Flag{Name: "base-version", Usage: "Fail if the content version moved on"},
		},
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.RemoveElement(c.Context, ops.RemoveElementInput{
				Owner:       owner(c, svc),
				ID:          id,
				ElementID:   c.String("element"),
				BaseVersion: baseVersion(c),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func publishCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish a form and print its share link",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.Publish(c.Context, owner(c, svc), id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func deleteCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a draft form",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			if !c.Bool("yes") && interactive() {
				confirmed := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Delete form %s?", id)}
				if err := askOne(prompt, &confirmed); err != nil || !confirmed {
					return outputError(errors.NewCancelled("delete"))
				}
			}
			output, err := svc.DeleteForm(c.Context, owner(c, svc), id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func purgeCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently remove soft-deleted forms",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{Owner: owner(c, svc)}
			if s := c.String("older-than"); s != "" {
				days, err := parseDuration(s)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}
			output, err := svc.Purge(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func statsCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show visit and submission totals",
		Action: func(c *cli.Context) error {
			output, err := svc.Stats(c.Context, owner(c, svc))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func submissionsCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "submissions",
		Usage:     "List a form's submissions, newest first",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.ListSubmissions(c.Context, ops.SubmissionsInput{
				Owner:  owner(c, svc),
				FormID: id,
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func exportCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a form's design to JSON or YAML",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.formcraft/exports/<name>-<timestamp>.<ext>)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json|yaml (default: from --path, else json)"},
		},
		Action: func(c *cli.Context) error {
			id, err := formID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := svc.Export(c.Context, ops.ExportInput{
				Owner:  owner(c, svc),
				ID:     id,
				Path:   c.String("path"),
				Format: c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func importCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import an exported design as a new draft",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name for the new draft (default: the exported name)"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.Import(c.Context, ops.ImportInput{
				Owner: owner(c, svc),
				Path:  c.String("path"),
				Name:  c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func serveCmd(svc *ops.Service, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web designer and public submission pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Address to bind (default: config bind)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default: config port)"},
		},
		Action: func(c *cli.Context) error {
			cfg := svc.Config()
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if err := web.Run(web.NewServer(svc, logger, Version), logger); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	appErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewPayloadTooLarge("stdin", int(limit), len(data))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseAttributes decodes a JSON object, keeping numbers as json.Number the
// same way the MCP and HTTP surfaces do.
func parseAttributes(raw string) (fields.Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var attrs fields.Attributes
	if err := dec.Decode(&attrs); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("attributes must be a JSON object: %v", err))
	}
	if attrs == nil {
		return nil, errors.NewInvalidRequest("attributes must be a JSON object")
	}
	return attrs, nil
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
