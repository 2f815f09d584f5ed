package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStreamBasePath(t *testing.T) {
	tests := []struct {
		stream string
		want   string
	}{
		{StreamAll, filepath.Join("d", "all", "all.log")},
		{StreamCore, filepath.Join("d", "core", "core.log")},
		{StreamError, filepath.Join("d", "errors", "error.log")},
		{PluginStream("memo"), filepath.Join("d", "plugins", "memo", "plugin.log")},
	}
	for _, tt := range tests {
		got, err := streamBasePath("d", tt.stream)
		if err != nil {
			t.Errorf("streamBasePath(%q): %v", tt.stream, err)
			continue
		}
		if got != tt.want {
			t.Errorf("streamBasePath(%q) = %q, want %q", tt.stream, got, tt.want)
		}
	}

	if _, err := streamBasePath("d", "bogus"); err == nil {
		t.Error("unknown stream should fail")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"astrbot_plugin_memo", "astrbot_plugin_memo"},
		{"with/slash", "with_slash"},
		{"..", "unknown"},
		{"", "unknown"},
		{"spaced name", "spaced_name"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("all/all.log")
	write("all/all.log.1")
	write("all/all.log.2.gz")
	write("plugins/memo/plugin.log")
	write("exports/all_logs_20240101_000000.zip") // skipped
	write("all/notes.txt")                        // not a segment

	files, err := ScanFiles(dir)
	if err != nil {
		t.Fatalf("ScanFiles: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("got %d files, want 4: %+v", len(files), files)
	}

	byRel := map[string]FileInfo{}
	for _, f := range files {
		byRel[filepath.ToSlash(f.Rel)] = f
	}
	if f := byRel["all/all.log"]; !f.Active || f.Compressed {
		t.Errorf("all.log flags wrong: %+v", f)
	}
	if f := byRel["all/all.log.1"]; f.Active || f.Compressed {
		t.Errorf("all.log.1 flags wrong: %+v", f)
	}
	if f := byRel["all/all.log.2.gz"]; f.Active || !f.Compressed {
		t.Errorf("all.log.2.gz flags wrong: %+v", f)
	}
}

func TestScanFilesMissingDir(t *testing.T) {
	files, err := ScanFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not error, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}
}
