package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaultsLoad(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("game.started", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("empty game.started message")
	}
}

func TestRenderWithData(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("move.played", map[string]any{"Mover": "Alice", "Move": "e2-e4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "e2-e4") {
		t.Fatalf("rendered = %q", out)
	}
}

func TestRenderUnknownKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatal("want error for unknown key")
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := "game:\n  started: \"custom start\"\n"
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("game.started", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "custom start" {
		t.Fatalf("override not applied: %q", out)
	}
	// untouched keys keep their defaults
	if _, err := c.Render("game.quit", nil); err != nil {
		t.Fatalf("default lost after override: %v", err)
	}
}

func TestDuplicateOverrideKeyRejected(t *testing.T) {
	dir := t.TempDir()
	a := "game:\n  started: \"from a\"\n"
	b := "game:\n  started: \"from b\"\n"
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(a), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(b), 0o644); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatal("want duplicate key error")
	}
}
