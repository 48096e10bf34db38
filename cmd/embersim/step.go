//go:build !tinygo

package main

import (
	"fmt"
	"io"

	"github.com/mattn/go-tty"
	"github.com/spf13/cobra"

	"ember/emberos/sim"
)

var (
	stepOpts = struct {
		device string
	}{}

	stepCmd = &cobra.Command{
		Use:   "step",
		Short: "Step a workload interactively, one tick per key",
		Long: `Step a workload interactively on the terminal.

Keys: space or enter advances one tick, digits 1-9 advance that many ticks,
r prints a report, q quits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSim()
			if err != nil {
				return err
			}

			var t *tty.TTY
			if stepOpts.device != "" {
				t, err = tty.OpenDevice(stepOpts.device)
			} else {
				t, err = tty.Open()
			}
			if err != nil {
				return err
			}
			defer t.Close()

			restore, err := t.Raw()
			if err != nil {
				return err
			}
			defer restore()

			return stepLoop(m, t, t.Output())
		},
	}
)

func init() {
	stepCmd.Flags().StringVar(&stepOpts.device, "tty", "", "terminal device (default: the controlling terminal)")
}

type runeReader interface {
	ReadRune() (rune, error)
}

func stepLoop(m *sim.Sim, in runeReader, out io.Writer) error {
	fmt.Fprintf(out, "%s: space/enter=tick 1-9=ticks r=report q=quit\r\n", m.Workload().Name)
	seen := 0
	for {
		r, err := in.ReadRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var n uint32
		switch {
		case r == 'q' || r == 3:
			return nil
		case r == 'r':
			if err := m.Report().WriteText(crlf{out}); err != nil {
				return err
			}
			continue
		case r == ' ' || r == '\r' || r == '\n':
			n = 1
		case r >= '1' && r <= '9':
			n = uint32(r - '0')
		default:
			continue
		}

		stepErr := m.Advance(n)
		for _, ev := range m.Recorder().Since(seen) {
			fmt.Fprintf(out, "%s\r\n", ev)
		}
		seen = m.Recorder().Len()
		if stepErr != nil {
			fmt.Fprintf(out, "fault: %v\r\n", stepErr)
			return stepErr
		}
	}
}

// crlf turns bare newlines into CRLF for a terminal in raw mode.
type crlf struct {
	w io.Writer
}

func (c crlf) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if b != '\n' {
			continue
		}
		if _, err := c.w.Write(p[start:i]); err != nil {
			return start, err
		}
		if _, err := c.w.Write([]byte("\r\n")); err != nil {
			return i, err
		}
		start = i + 1
	}
	if _, err := c.w.Write(p[start:]); err != nil {
		return start, err
	}
	return len(p), nil
}
