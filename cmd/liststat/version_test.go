package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestVersionCmd tests the version command output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints details", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(nil)

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{"liststat version", "commit:", "built:", "go:"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected output to contain %q, got %q", want, out.String())
			}
		}
	})

	t.Run("short prints version only", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--short"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := strings.TrimSpace(out.String())
		if got != getVersion() {
			t.Errorf("expected %q, got %q", getVersion(), got)
		}
	})
}

// TestReadBuildInfo tests that version fields are never empty.
func TestReadBuildInfo(t *testing.T) {
	t.Parallel()

	info := readBuildInfo()
	if info.Version == "" || info.Commit == "" || info.Date == "" {
		t.Errorf("expected all fields to be set, got %+v", info)
	}
}
