package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	o, err := Load([]byte(`{}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(o, Defaults()) {
		t.Errorf("empty document should yield defaults, got %+v", o)
	}
}

func TestLoadOverrides(t *testing.T) {
	doc := `{
		"log_level": "WARNING",
		"max_file_size_mb": 2,
		"backup_count": 3,
		"rotation_strategy": "hybrid",
		"rotation_interval": "hourly",
		"enable_plugin_separation": false,
		"max_total_size_mb": 100,
		"sensitive_keywords": "token, password ,"
	}`
	o, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o.LogLevel != "WARNING" {
		t.Errorf("LogLevel = %q", o.LogLevel)
	}
	if o.MaxFileSizeMB != 2 || o.BackupCount != 3 {
		t.Errorf("size/backup = %d/%d", o.MaxFileSizeMB, o.BackupCount)
	}
	if o.RotationStrategy != StrategyHybrid || o.RotationInterval != IntervalHourly {
		t.Errorf("rotation = %s/%s", o.RotationStrategy, o.RotationInterval)
	}
	if o.EnablePluginSeparation {
		t.Error("EnablePluginSeparation should be false")
	}
	// Untouched keys keep their defaults.
	if !o.EnableCompression || o.MaxAgeDays != 30 {
		t.Errorf("defaults clobbered: compression=%v maxAge=%d", o.EnableCompression, o.MaxAgeDays)
	}
	want := []string{"token", "password"}
	if got := o.SensitiveKeywordList(); !reflect.DeepEqual(got, want) {
		t.Errorf("SensitiveKeywordList = %v, want %v", got, want)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"bad json", `{`},
		{"zero file size", `{"max_file_size_mb": 0}`},
		{"negative backups", `{"backup_count": -1}`},
		{"bad strategy", `{"rotation_strategy": "weekly"}`},
		{"bad interval", `{"rotation_interval": "monthly"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load([]byte(tc.doc)); err == nil {
				t.Errorf("Load(%s) should fail", tc.doc)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"backup_count": 7}`), 0644); err != nil {
		t.Fatal(err)
	}
	o, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if o.BackupCount != 7 {
		t.Errorf("BackupCount = %d, want 7", o.BackupCount)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile on missing path should fail")
	}
}

func TestSizeHelpers(t *testing.T) {
	o := Defaults()
	o.MaxFileSizeMB = 3
	o.MaxTotalSizeMB = 4
	if o.MaxFileSizeBytes() != 3*1024*1024 {
		t.Errorf("MaxFileSizeBytes = %d", o.MaxFileSizeBytes())
	}
	if o.MaxTotalSizeBytes() != 4*1024*1024 {
		t.Errorf("MaxTotalSizeBytes = %d", o.MaxTotalSizeBytes())
	}
}
