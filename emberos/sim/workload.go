//go:build !tinygo

// Package sim runs scheduler workloads on the host port's virtual clock and
// reports how the threads were served.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ember/emberos/kernel"
)

const (
	DefaultTicks         = 1000
	DefaultCyclesPerTick = 4
	DefaultStackWords    = 128
	DefaultWork          = 1
)

// Mode is how a simulated thread spends a dispatch.
type Mode string

const (
	// ModeYield runs Work units then yields.
	ModeYield Mode = "yield"
	// ModeSpin never yields; only ticks take the core away.
	ModeSpin Mode = "spin"
)

var (
	ErrNoThreads       = errors.New("sim: workload has no threads")
	ErrUnknownPriority = errors.New("sim: unknown priority")
	ErrUnknownMode     = errors.New("sim: unknown mode")
	ErrDuplicateName   = errors.New("sim: duplicate thread name")
)

// Workload is a set of threads plus how long to run them.
type Workload struct {
	Name          string         `yaml:"name"`
	Ticks         uint32         `yaml:"ticks"`
	CyclesPerTick int            `yaml:"cycles_per_tick"`
	Threads       []ThreadConfig `yaml:"threads"`
}

// ThreadConfig describes one simulated thread.
type ThreadConfig struct {
	Name     string `yaml:"name"`
	Priority string `yaml:"priority"`
	Period   uint32 `yaml:"period"`
	Stack    int    `yaml:"stack"`
	Work     int    `yaml:"work"`
	Mode     Mode   `yaml:"mode"`
}

// Load reads and validates a workload file.
func Load(path string) (*Workload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// Parse decodes a workload from YAML bytes.
func Parse(data []byte) (*Workload, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one YAML workload document. Unknown keys are errors.
func Decode(r io.Reader) (*Workload, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var w Workload
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoThreads
		}
		return nil, fmt.Errorf("sim: decode workload: %w", err)
	}
	if err := w.normalize(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (w *Workload) normalize() error {
	if len(w.Threads) == 0 {
		return ErrNoThreads
	}
	if w.Ticks == 0 {
		w.Ticks = DefaultTicks
	}
	if w.CyclesPerTick <= 0 {
		w.CyclesPerTick = DefaultCyclesPerTick
	}

	seen := make(map[string]bool, len(w.Threads))
	for i := range w.Threads {
		tc := &w.Threads[i]
		if tc.Name == "" {
			tc.Name = fmt.Sprintf("t%d", i)
		}
		if seen[tc.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, tc.Name)
		}
		seen[tc.Name] = true

		if tc.Priority == "" {
			tc.Priority = kernel.Normal.String()
		}
		if _, err := ParsePriority(tc.Priority); err != nil {
			return fmt.Errorf("thread %q: %w", tc.Name, err)
		}
		if tc.Stack == 0 {
			tc.Stack = DefaultStackWords
		}
		if tc.Work <= 0 {
			tc.Work = DefaultWork
		}
		switch tc.Mode {
		case "":
			tc.Mode = ModeYield
		case ModeYield, ModeSpin:
		default:
			return fmt.Errorf("thread %q: %w %q", tc.Name, ErrUnknownMode, tc.Mode)
		}
	}
	return nil
}

// ParsePriority maps low, normal or high to a kernel priority.
func ParsePriority(s string) (kernel.Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return kernel.Low, nil
	case "normal":
		return kernel.Normal, nil
	case "high":
		return kernel.High, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownPriority, s)
	}
}
