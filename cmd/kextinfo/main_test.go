package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leodido/kextinfo"
	"github.com/leodido/kextinfo/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestParseFormat_CaseInsensitive(t *testing.T) {
	tests := []struct {
		input string
		want  report.Format
	}{
		{"html", report.FormatHTML},
		{" JSON ", report.FormatJSON},
		{"Yaml", report.FormatYAML},
		{"text", report.FormatText},
	}
	for _, tt := range tests {
		got, err := parseFormat(tt.input)
		if err != nil {
			t.Fatalf("parseFormat(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("parseFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormat_Unknown(t *testing.T) {
	_, err := parseFormat("pdf")
	if err == nil {
		t.Fatal("parseFormat(pdf) expected error")
	}

	msg := err.Error()
	if !strings.Contains(msg, `unknown format: "pdf"`) {
		t.Fatalf("error %q missing unknown format context", msg)
	}
	if !strings.Contains(msg, "available: html, json, yaml, text") {
		t.Fatalf("error %q missing available formats", msg)
	}
}

func TestReportOptionsCompleteFormat(t *testing.T) {
	opts := &ReportOptions{}

	got, directive := opts.CompleteFormat(nil, nil, "")
	if len(got) != len(report.FormatNames()) {
		t.Fatalf("CompleteFormat(\"\") = %v, want all formats", got)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Fatalf("directive = %v, want %v", directive, cobra.ShellCompDirectiveNoFileComp)
	}

	got, _ = opts.CompleteFormat(nil, nil, "J")
	if len(got) != 1 || got[0] != "json" {
		t.Fatalf("CompleteFormat(J) = %v, want [json]", got)
	}
}

func TestRunReport_HTMLFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.html")
	opts := &ReportOptions{
		Output:     out,
		Format:     report.FormatHTML,
		Input:      "../../testdata/kextstat.txt",
		Title:      "kextstat",
		Stylesheet: "shiny.css",
	}

	var stdout bytes.Buffer
	if err := runReport(opts, &stdout, zap.NewNop()); err != nil {
		t.Fatalf("runReport() error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("runReport() wrote %d bytes to stdout", stdout.Len())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	for _, want := range []string{`<tr id="stat-48">`, `<a href="#stat-21">21: com.apple.iokit.IOReportFamily</a>`} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRunReport_Stdout(t *testing.T) {
	opts := &ReportOptions{
		Output: "-",
		Format: report.FormatJSON,
		Input:  "../../testdata/kextstat.txt",
	}

	var stdout bytes.Buffer
	if err := runReport(opts, &stdout, zap.NewNop()); err != nil {
		t.Fatalf("runReport() error = %v", err)
	}

	var entries []report.Entry
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(entries) != 6 {
		t.Errorf("len(entries) = %d, want 6", len(entries))
	}
}

func TestRunReport_Strict(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.html")
	opts := &ReportOptions{
		Output: out,
		Input:  "../../testdata/kextstat-dangling.txt",
		Strict: true,
	}

	err := runReport(opts, &bytes.Buffer{}, zap.NewNop())
	var dre *kextinfo.DanglingReferenceError
	if !errors.As(err, &dre) {
		t.Fatalf("runReport() error = %v, want *DanglingReferenceError", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("runReport() left an output file after failing")
	}

	// Without --strict the missing dependency is rendered.
	opts.Strict = false
	if err := runReport(opts, &bytes.Buffer{}, zap.NewNop()); err != nil {
		t.Fatalf("runReport() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `<li class="dangling">99: (missing)</li>`) {
		t.Error("report missing dangling reference")
	}
}

func TestRunReport_ParseError(t *testing.T) {
	in := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(in, []byte("Index Refs Address Size\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "output.html")

	err := runReport(&ReportOptions{Output: out, Input: in}, &bytes.Buffer{}, zap.NewNop())
	var fe *kextinfo.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("runReport() error = %v, want *FormatError", err)
	}
	if !strings.HasPrefix(err.Error(), in+": ") {
		t.Errorf("error %q missing input path", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("runReport() wrote output after a parse error")
	}
}

func TestWriteCheck(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		ix, err := loadIndex("../../testdata/kextstat.txt", zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		var stdout, stderr bytes.Buffer
		ok, err := writeCheck(&stdout, &stderr, ix, false)
		if err != nil || !ok {
			t.Fatalf("writeCheck() = %v, %v, want true, nil", ok, err)
		}
		if got, want := stdout.String(), "OK: 6 extensions, all dependencies loaded\n"; got != want {
			t.Errorf("stdout = %q, want %q", got, want)
		}
	})

	t.Run("dangling", func(t *testing.T) {
		ix, err := loadIndex("../../testdata/kextstat-dangling.txt", zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		var stdout, stderr bytes.Buffer
		ok, err := writeCheck(&stdout, &stderr, ix, false)
		if err != nil || ok {
			t.Fatalf("writeCheck() = %v, %v, want false, nil", ok, err)
		}
		if got, want := stderr.String(), "FAIL: extension 30 links against 99, which is not loaded\n"; got != want {
			t.Errorf("stderr = %q, want %q", got, want)
		}
	})

	t.Run("dangling json", func(t *testing.T) {
		ix, err := loadIndex("../../testdata/kextstat-dangling.txt", zap.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		var stdout, stderr bytes.Buffer
		ok, err := writeCheck(&stdout, &stderr, ix, true)
		if err != nil || ok {
			t.Fatalf("writeCheck() = %v, %v, want false, nil", ok, err)
		}

		var got struct {
			OK         bool           `json:"ok"`
			Extensions int            `json:"extensions"`
			Dangling   []danglingJSON `json:"dangling"`
		}
		if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal() error = %v", err)
		}
		if got.OK || got.Extensions != 2 || len(got.Dangling) != 1 || got.Dangling[0] != (danglingJSON{From: 30, To: 99}) {
			t.Errorf("check JSON = %+v", got)
		}
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "output.html")
	if err := os.WriteFile(out, []byte("previous report"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := writeFile(out, []byte("new report")); err != nil {
		t.Fatalf("writeFile() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new report" {
		t.Errorf("content = %q, want %q", data, "new report")
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the report", len(entries))
	}
}

func TestWriteFile_RenameFails(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the target path makes the final rename fail.
	out := filepath.Join(dir, "output.html")
	if err := os.MkdirAll(filepath.Join(out, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := writeFile(out, []byte("report")); err == nil {
		t.Fatal("writeFile() expected error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "output.html" || !entries[0].IsDir() {
		t.Errorf("writeFile() left temporary files behind: %v", entries)
	}
}

func TestLoadIndex_MissingInput(t *testing.T) {
	if _, err := loadIndex(filepath.Join(t.TempDir(), "nope.txt"), zap.NewNop()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("loadIndex() error = %v, want not-exist", err)
	}
}
