package csvio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExport_QuotesSpecialFields(t *testing.T) {
	objs := []Object{
		{{"Name", "plain"}, {"Notes", "a,b"}},
		{{"Name", `say "hi"`}, {"Notes", "line1\nline2"}},
	}

	got, err := ExportString(objs)
	if err != nil {
		t.Fatalf("ExportString() error = %v", err)
	}
	want := "Name,Notes\nplain,\"a,b\"\n\"say \"\"hi\"\"\",\"line1\nline2\"\n"
	if got != want {
		t.Errorf("ExportString() =\n%q\nwant\n%q", got, want)
	}
}

func TestExport_Empty(t *testing.T) {
	got, err := ExportString(nil)
	if err != nil {
		t.Fatalf("ExportString() error = %v", err)
	}
	if got != "" {
		t.Errorf("ExportString(nil) = %q, want empty", got)
	}
}

func TestExport_ShapeMismatch(t *testing.T) {
	objs := []Object{
		{{"a", "1"}, {"b", "2"}},
		{{"a", "1"}},
	}
	if _, err := ExportString(objs); err == nil {
		t.Error("ExportString() error = nil, want shape error")
	}
}

func TestExportParse_RoundTrip(t *testing.T) {
	objs := []Object{
		{{"Date", "2023-10-25"}, {"Client Name", "Client, Alpha"}, {"Amount", "600.00"}, {"Notes", "He said \"ok\"\nthen left"}},
		{{"Date", "2023-10-26"}, {"Client Name", "Beta"}, {"Amount", "125.00"}, {"Notes", "N/A"}},
	}

	text, err := ExportString(objs)
	if err != nil {
		t.Fatalf("ExportString() error = %v", err)
	}
	res, err := ParseString(text)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if len(res.Skipped) != 0 {
		t.Fatalf("Skipped = %v", res.Skipped)
	}
	if len(res.Rows) != len(objs) {
		t.Fatalf("len(Rows) = %d, want %d", len(res.Rows), len(objs))
	}
	for i, obj := range objs {
		for _, f := range obj {
			got, ok := res.Rows[i].Get(f.Key)
			if !ok || got != f.Value {
				t.Errorf("row %d %q = %q, want %q", i, f.Key, got, f.Value)
			}
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteFile(path, []Object{{{"k", "v"}}}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "k\nv\n" {
		t.Errorf("file = %q", data)
	}
}
