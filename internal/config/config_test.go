package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papyrus/internal/game"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("Find = %q, want %q", got, want)
	}
}

func TestDiscoverDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// A papyrus.toml above the temp dir would make this test environment dependent.
	if cfg.Path != "" {
		t.Skipf("found %s above the temp dir", cfg.Path)
	}
	v, err := cfg.Variant()
	if err != nil || v != game.SkyrimSE {
		t.Fatalf("default variant = %v, %v", v, err)
	}
	if !cfg.Cache.Enabled || !cfg.Clean.Terminated {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, `
[game]
variant = "skyrim-le"
str32 = true

[cache]
dir = "cache"

[clean]
terminated = false
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, err := cfg.Variant()
	if err != nil {
		t.Fatal(err)
	}
	if v.Family != game.SkyrimLE.Family || !v.Str32 {
		t.Fatalf("variant = %+v", v)
	}
	if cfg.Clean.Terminated || !cfg.Clean.Undefined {
		t.Fatalf("clean = %+v, want only terminated disabled", cfg.Clean)
	}
	if cfg.Trace.Level != "off" {
		t.Fatalf("trace level = %q, want default", cfg.Trace.Level)
	}
	dirGot, err := cfg.CacheDir()
	if err != nil || dirGot != filepath.Join(dir, "cache") {
		t.Fatalf("CacheDir = %q, %v", dirGot, err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[game\n", "failed to parse TOML"},
		{"unknown key", "[game]\nflavour = 1\n", "unknown keys: game.flavour"},
		{"bad variant", "[game]\nvariant = \"morrowind\"\n", "[game].variant"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"bad mode", "[trace]\nmode = \"both\"\n", "[trace].mode"},
		{"bad format", "[trace]\nformat = \"xml\"\n", "[trace].format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(p)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
