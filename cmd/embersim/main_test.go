//go:build !tinygo

package main

import (
	"bytes"
	"strings"
	"testing"

	"ember/emberos/sim"
)

func TestDefaultWorkloadParses(t *testing.T) {
	w, err := sim.Parse(defaultWorkload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if w.Name != "mixed" || len(w.Threads) != 5 {
		t.Fatalf("workload = %q with %d threads", w.Name, len(w.Threads))
	}
}

func TestReportCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"report", "--ticks", "200", "--format", "text"})
	t.Cleanup(func() {
		rootOpts.ticks = 0
		reportOpts.format = "text"
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{`workload "mixed"`, "heartbeat", "console", "level low"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("missing %q in\n%s", want, out.String())
		}
	}
}

// keys feeds a fixed key sequence the way the terminal does.
type keys struct {
	r *strings.Reader
}

func (k keys) ReadRune() (rune, error) {
	r, _, err := k.r.ReadRune()
	return r, err
}

func TestStepLoop(t *testing.T) {
	w, err := sim.Parse(defaultWorkload)
	if err != nil {
		t.Fatal(err)
	}
	m, err := sim.New(w)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := stepLoop(m, keys{strings.NewReader("  5xrq")}, &out); err != nil {
		t.Fatalf("stepLoop: %v", err)
	}
	if m.NowMs() < 7 {
		t.Fatalf("now = %d, want >= 7", m.NowMs())
	}
	if !strings.Contains(out.String(), "dispatch") {
		t.Fatalf("no events printed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "\r\nlevel high") {
		t.Fatalf("report not CRLF-terminated:\n%q", out.String())
	}
}

func TestCRLF(t *testing.T) {
	var out bytes.Buffer
	n, err := crlf{&out}.Write([]byte("a\nb\n"))
	if err != nil || n != 4 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if got := out.String(); got != "a\r\nb\r\n" {
		t.Fatalf("got %q", got)
	}
}
