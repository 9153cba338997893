package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/billing/internal/config"
	"github.com/JonMunkholm/billing/internal/core"
	"github.com/JonMunkholm/billing/internal/store"
)

// run executes one billingctl invocation against a SQLite store in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "billing.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTemplate(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "template")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "employeeIdentifier,projectIdentifier,clientName,date,status,isCountBased") {
		t.Errorf("stdout = %q", out)
	}

	path := filepath.Join(dir, "template.csv")
	if _, err := run(t, dir, "template", "--out", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != out {
		t.Errorf("file content differs from stdout:\n%s", data)
	}
}

func TestImportThenExport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "records.csv")

	if _, err := run(t, dir, "template", "--out", csvPath); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, dir, "import", csvPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Row 2: Record for employee1 / Website Redesign imported.",
		"Row 3: Record for employee2 / Data Entry Batch A imported.",
		"2 imported, 0 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("import output missing %q:\n%s", want, out)
		}
	}

	// a second process sees the records through the SQLite file
	out, err = run(t, dir, "export", "--search", "alpha")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("export lines = %q", lines)
	}
	if !strings.Contains(lines[1], "Website Redesign") || !strings.Contains(lines[1], ",600,pending,Hourly,8.00,75.00,") {
		t.Errorf("export row = %q", lines[1])
	}

	stdout, err := run(t, dir, "export")
	if err != nil {
		t.Fatal(err)
	}
	exportPath := filepath.Join(dir, "out.csv")
	out, err = run(t, dir, "export", "--out", exportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Exported 2 records") {
		t.Errorf("stdout = %q", out)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != stdout {
		t.Errorf("file export differs from stdout export:\n%s\nvs\n%s", data, stdout)
	}
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	writeFile(t, bad, "employeeIdentifier,projectIdentifier\nemployee1,proj1\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"export empty store", []string{"export"}, "REC004"},
		{"export bad status", []string{"export", "--status", "late"}, "invalid status"},
		{"import missing headers", []string{"import", bad}, "VAL004"},
		{"import missing file", []string{"import", filepath.Join(dir, "nope.csv")}, "no such file"},
		{"import needs a file", []string{"import"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

// closeRecorder notes whether the command closed its store.
type closeRecorder struct {
	store.Repository
	closed bool
}

func (r *closeRecorder) Close() error {
	r.closed = true
	return r.Repository.Close()
}

func TestFailedCommandClosesStore(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	missing := filepath.Join(t.TempDir(), "nope.csv")

	tests := []struct {
		name     string
		args     []string
		wantUser bool
	}{
		{"export with no records", []string{"export"}, true},
		{"import missing file", []string{"import", missing}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &closeRecorder{Repository: store.NewMemory()}
			a := &app{openStore: func(context.Context, config.StoreConfig) (store.Repository, error) {
				return repo, nil
			}}
			root := newRootCmd(a)
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(tt.args)

			err := root.Execute()
			if err == nil {
				t.Fatal("Execute() error = nil")
			}
			if !repo.closed {
				t.Error("store left open after a failed command")
			}
			var ue *core.UserError
			if got := errors.As(err, &ue); got != tt.wantUser {
				t.Errorf("errors.As(UserError) = %v, want %v (err = %v)", got, tt.wantUser, err)
			}
			if tt.wantUser && !errors.Is(err, core.ErrNoRecords) {
				t.Errorf("err = %v, want it to wrap ErrNoRecords", err)
			}
		})
	}
}

func TestDirectory(t *testing.T) {
	out, err := run(t, t.TempDir(), "directory")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"employee1", "proj3", "Records Processed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
