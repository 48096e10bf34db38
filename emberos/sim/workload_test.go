//go:build !tinygo

package sim

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ember/emberos/kernel"
)

func TestParseAppliesDefaults(t *testing.T) {
	w, err := Parse([]byte("name: one\nthreads:\n  - name: a\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if w.Ticks != DefaultTicks || w.CyclesPerTick != DefaultCyclesPerTick {
		t.Fatalf("ticks=%d cycles=%d", w.Ticks, w.CyclesPerTick)
	}
	tc := w.Threads[0]
	if tc.Priority != "normal" || tc.Stack != DefaultStackWords || tc.Work != DefaultWork || tc.Mode != ModeYield {
		t.Fatalf("thread = %+v", tc)
	}
}

func TestParseNamesUnnamedThreads(t *testing.T) {
	w, err := Parse([]byte("threads:\n  - priority: high\n  - priority: low\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if w.Threads[0].Name != "t0" || w.Threads[1].Name != "t1" {
		t.Fatalf("names = %q, %q", w.Threads[0].Name, w.Threads[1].Name)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrNoThreads},
		{"no threads", "name: x\n", ErrNoThreads},
		{"priority", "threads:\n  - name: a\n    priority: urgent\n", ErrUnknownPriority},
		{"mode", "threads:\n  - name: a\n    mode: sleep\n", ErrUnknownMode},
		{"duplicate", "threads:\n  - name: a\n  - name: a\n", ErrDuplicateName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("threads:\n  - name: a\n    colour: red\n")); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.yaml")
	if err := os.WriteFile(path, []byte("threads:\n  - name: a\n    priority: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrUnknownPriority) {
		t.Fatalf("err = %v", err)
	}

	if err := os.WriteFile(path, []byte("threads:\n  - name: a\n    period: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.Threads[0].Period != 7 {
		t.Fatalf("period = %d", w.Threads[0].Period)
	}
}

func TestParsePriority(t *testing.T) {
	for s, want := range map[string]kernel.Priority{"low": kernel.Low, "Normal": kernel.Normal, "HIGH": kernel.High} {
		got, err := ParsePriority(s)
		if err != nil || got != want {
			t.Fatalf("ParsePriority(%q) = %v, %v", s, got, err)
		}
	}
}
