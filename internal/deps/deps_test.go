package deps

import (
	"os"
	"path/filepath"
	"testing"

	"nemoctl/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestRequirementsFollowConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.NGC.Binary = "/opt/ngc/bin/ngc"
	cfg.NeMo.PythonBinary = "python3"

	reqs := Requirements(&cfg)
	byName := make(map[string]Requirement, len(reqs))
	for _, req := range reqs {
		byName[req.Name] = req
	}
	if byName["NGC CLI"].Command != "/opt/ngc/bin/ngc" {
		t.Fatalf("unexpected ngc command: %q", byName["NGC CLI"].Command)
	}
	if byName["Python"].Command != "python3" {
		t.Fatalf("unexpected python command: %q", byName["Python"].Command)
	}
	if !byName["Git"].Optional {
		t.Fatal("git should be optional")
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "A", Available: true},
		{Name: "B", Available: false},
		{Name: "C", Available: false, Optional: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "B" {
		t.Fatalf("unexpected missing set: %v", missing)
	}
}
