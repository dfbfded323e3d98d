package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2"

	"github.com/hpungsan/formcraft/internal/config"
	"github.com/hpungsan/formcraft/internal/db"
	"github.com/hpungsan/formcraft/internal/ops"
)

// setupTestService creates a service on a temporary database.
func setupTestService(t *testing.T) *ops.Service {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Owner = "ana"
	cfg.AllowUnsafePaths = true
	svc, err := ops.New(db.NewStore(database), nil, cfg, ops.WithExportsDir(filepath.Join(baseDir, "exports")))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// nonInteractive disables prompts for the duration of the test.
func nonInteractive(t *testing.T) {
	t.Helper()
	old := interactive
	interactive = func() bool { return false }
	t.Cleanup(func() { interactive = old })
}

// run executes the CLI with args and returns captured stdout.
func run(t *testing.T, svc *ops.Service, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(svc, nil)

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := app.Run(append([]string{"formcraft"}, args...))

	w.Close()
	os.Stdout = oldStdout
	out, _ := io.ReadAll(r)
	return string(out), runErr
}

// mustRun runs the CLI and decodes its JSON output into v.
func mustRun(t *testing.T, svc *ops.Service, v any, args ...string) {
	t.Helper()
	out, err := run(t, svc, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", args[0], err)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("failed to parse %s output: %v\n%s", args[0], err, out)
	}
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{name: "valid days", input: "7d", expected: 7},
		{name: "zero days", input: "0d", expected: 0},
		{name: "large number", input: "365d", expected: 365},
		{name: "negative days", input: "-7d", expectError: true},
		{name: "no suffix", input: "7", expectError: true},
		{name: "wrong suffix", input: "7h", expectError: true},
		{name: "invalid number", input: "abcd", expectError: true},
		{name: "empty string", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestParseAttributes(t *testing.T) {
	attrs, err := parseAttributes(`{"label":"Age","required":true,"min":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs["label"] != "Age" || attrs["required"] != true {
		t.Errorf("unexpected attributes: %v", attrs)
	}
	if n, ok := attrs["min"].(json.Number); !ok || n.String() != "3" {
		t.Errorf("expected json.Number 3, got %T %v", attrs["min"], attrs["min"])
	}

	for _, raw := range []string{"", "null", "[1,2]", "{bad"} {
		if _, err := parseAttributes(raw); err == nil {
			t.Errorf("parseAttributes(%q): expected error", raw)
		}
	}
}

// TestCLIDesignWorkflow drives a form from creation to a round-tripped export.
func TestCLIDesignWorkflow(t *testing.T) {
	nonInteractive(t)
	svc := setupTestService(t)

	var created ops.CreateOutput
	mustRun(t, svc, &created, "create", "--name=Contact us", "--description=Reach the team")
	if created.ID == "" || created.Name != "Contact us" {
		t.Fatalf("unexpected create output: %+v", created)
	}

	var title ops.DropOutput
	mustRun(t, svc, &title, "drop", created.ID, "--field-type=TitleField")
	var name ops.DropOutput
	mustRun(t, svc, &name, "drop", created.ID, "--field-type=TextField", "--target=after", "--target-id="+title.Result.Element.ID)
	if name.ContentVersion != 2 {
		t.Errorf("expected content_version=2, got %d", name.ContentVersion)
	}
	if len(name.Elements) != 2 || name.Elements[1].ID != name.Result.Element.ID {
		t.Fatalf("expected text field after title, got %+v", name.Elements)
	}
	nameID := name.Result.Element.ID

	// Move the title below the text field.
	var moved ops.DropOutput
	mustRun(t, svc, &moved, "drop", created.ID, "--element="+title.Result.Element.ID, "--target=after", "--target-id="+nameID)
	if moved.Elements[0].ID != nameID {
		t.Errorf("expected %s first after move, got %s", nameID, moved.Elements[0].ID)
	}

	var updated ops.ElementOutput
	mustRun(t, svc, &updated, "update-element", created.ID, "--element="+nameID,
		`--attributes={"label":"Full name","helperText":"","required":true,"placeholder":""}`)
	if got := updated.Element.ExtraAttributes.String("label"); got != "Full name" {
		t.Errorf("expected label=Full name, got %q", got)
	}

	t.Run("stale base version is a conflict", func(t *testing.T) {
		_, err := run(t, svc, "remove-element", created.ID, "--element="+nameID, "--base-version=1")
		if err == nil || !strings.Contains(err.Error(), "[CONFLICT]") {
			t.Errorf("expected CONFLICT, got %v", err)
		}
	})

	t.Run("design shows current version", func(t *testing.T) {
		var design designOutput
		mustRun(t, svc, &design, "design", created.ID)
		if design.ContentVersion != updated.ContentVersion {
			t.Errorf("expected content_version=%d, got %d", updated.ContentVersion, design.ContentVersion)
		}
		if len(design.Elements) != 2 {
			t.Errorf("expected 2 elements, got %d", len(design.Elements))
		}
	})

	path := filepath.Join(t.TempDir(), "contact.yaml")
	var exported ops.ExportOutput
	mustRun(t, svc, &exported, "export", created.ID, "--path="+path)
	if exported.Elements != 2 {
		t.Errorf("expected 2 exported elements, got %d", exported.Elements)
	}

	var imported ops.ImportOutput
	mustRun(t, svc, &imported, "import", "--path="+path, "--name=Contact copy")
	if imported.ID == created.ID || imported.Elements != 2 {
		t.Errorf("unexpected import output: %+v", imported)
	}

	var published ops.PublishOutput
	mustRun(t, svc, &published, "publish", created.ID)
	if !published.Published || !strings.HasSuffix(published.ShareLink, "/submit/"+published.ShareURL) {
		t.Errorf("unexpected publish output: %+v", published)
	}

	_, err := run(t, svc, "drop", created.ID, "--field-type=TextField")
	if err == nil || !strings.Contains(err.Error(), "[FORM_PUBLISHED]") {
		t.Errorf("expected FORM_PUBLISHED, got %v", err)
	}

	var list ops.ListOutput
	mustRun(t, svc, &list, "list")
	if list.Pagination.Total != 2 {
		t.Errorf("expected 2 forms, got %d", list.Pagination.Total)
	}
}

func TestCLIOwnerFlag(t *testing.T) {
	nonInteractive(t)
	svc := setupTestService(t)

	var created ops.CreateOutput
	mustRun(t, svc, &created, "--owner=bob", "create", "--name=Bob's form")

	_, err := run(t, svc, "get", created.ID)
	if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("expected NOT_FOUND for another owner, got %v", err)
	}
	mustRun(t, svc, nil, "--owner=bob", "get", created.ID)
}

func TestCLICreatePrompts(t *testing.T) {
	svc := setupTestService(t)

	oldInteractive, oldAsk := interactive, askOne
	t.Cleanup(func() { interactive, askOne = oldInteractive, oldAsk })
	interactive = func() bool { return true }

	var prompts []string
	askOne = func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		in := p.(*survey.Input)
		prompts = append(prompts, in.Message)
		if in.Message == "Form name:" {
			*response.(*string) = "Prompted form"
		}
		return nil
	}

	var created ops.CreateOutput
	mustRun(t, svc, &created, "create")
	if created.Name != "Prompted form" {
		t.Errorf("expected prompted name, got %q", created.Name)
	}
	if len(prompts) != 2 {
		t.Errorf("expected name and description prompts, got %v", prompts)
	}
}

func TestCLIDeleteConfirmation(t *testing.T) {
	svc := setupTestService(t)

	oldInteractive, oldAsk := interactive, askOne
	t.Cleanup(func() { interactive, askOne = oldInteractive, oldAsk })
	interactive = func() bool { return true }

	var created ops.CreateOutput
	mustRun(t, svc, &created, "create", "--name=Doomed form", "--description=")

	answer := false
	askOne = func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		if _, ok := p.(*survey.Confirm); !ok {
			t.Fatalf("expected a confirm prompt, got %T", p)
		}
		*response.(*bool) = answer
		return nil
	}

	_, err := run(t, svc, "delete", created.ID)
	if err == nil || !strings.Contains(err.Error(), "[CANCELLED]") {
		t.Errorf("expected CANCELLED when declined, got %v", err)
	}

	answer = true
	var deleted ops.DeleteOutput
	mustRun(t, svc, &deleted, "delete", created.ID)
	if !deleted.Deleted {
		t.Errorf("expected deleted=true, got %+v", deleted)
	}

	var purged ops.PurgeOutput
	mustRun(t, svc, &purged, "purge")
	if purged.Purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged.Purged)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	nonInteractive(t)
	svc := setupTestService(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{name: "get without id", args: []string{"get"}, code: "[INVALID_REQUEST]"},
		{name: "get not found", args: []string{"get", "nonexistent"}, code: "[NOT_FOUND]"},
		{name: "create without name", args: []string{"create"}, code: "[VALIDATION_FAILED]"},
		{name: "drop without source", args: []string{"drop", "f1"}, code: "[INVALID_REQUEST]"},
		{name: "drop with both sources", args: []string{"drop", "f1", "--field-type=TextField", "--element=e1"}, code: "[INVALID_REQUEST]"},
		{name: "invalid duration", args: []string{"purge", "--older-than=invalid"}, code: "[INVALID_REQUEST]"},
		{name: "bad attributes", args: []string{"update-element", "f1", "--element=e1", "--attributes=[1]"}, code: "[INVALID_REQUEST]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, svc, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"formcraft"}, expected: false},
		{name: "create command", args: []string{"formcraft", "create"}, expected: true},
		{name: "serve command", args: []string{"formcraft", "serve"}, expected: true},
		{name: "update-element command", args: []string{"formcraft", "update-element"}, expected: true},
		{name: "help flag", args: []string{"formcraft", "--help"}, expected: true},
		{name: "short version flag", args: []string{"formcraft", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"formcraft", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"formcraft"}, expected: false},
		{name: "help flag", args: []string{"formcraft", "--help"}, expected: true},
		{name: "short help flag", args: []string{"formcraft", "-h"}, expected: true},
		{name: "version flag", args: []string{"formcraft", "--version"}, expected: true},
		{name: "help subcommand", args: []string{"formcraft", "help"}, expected: true},
		{name: "create command is not help", args: []string{"formcraft", "create"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, "  {\"label\":\"x\"}\n")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != `{"label":"x"}` {
			t.Errorf("unexpected content %q", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}
