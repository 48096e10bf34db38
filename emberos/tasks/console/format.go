package console

import (
	"fmt"
	"strings"

	"ember/emberos/kernel"
)

const (
	sgrBold  = "\x1b[1m"
	sgrReset = "\x1b[0m"
	sgrRed   = "\x1b[31m"
	sgrGreen = "\x1b[32m"
)

// Format renders the status page as terminal text.
func Format(st kernel.Stats, threads []kernel.ThreadInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sember%s up %d.%03ds\n", sgrBold, sgrReset, st.NowMs/1000, st.NowMs%1000)
	fmt.Fprintf(&b, "dispatch %d idle %d\n", st.Dispatches, st.Idles)
	fmt.Fprintf(&b, "arena %d/%d words\n\n", st.ArenaUsed, st.ArenaCap)
	fmt.Fprintf(&b, "%-2s %-10s %-4s %-4s %8s %5s\n", "id", "name", "prio", "st", "runs", "free")
	for _, th := range threads {
		fmt.Fprintf(&b, "%-2d %-10s %-4s %s%-4s%s %8d %5d\n",
			th.ID, clip(th.Name, 10), abbrev(th.Priority.String()),
			stateColor(th), abbrev(th.State.String()), sgrReset,
			th.Dispatches, th.FreeWords)
	}
	return b.String()
}

func stateColor(th kernel.ThreadInfo) string {
	switch {
	case th.FreeWords < kernel.MinFreeWords:
		return sgrRed
	case th.State == kernel.Running:
		return sgrGreen
	default:
		return ""
	}
}

func abbrev(s string) string { return clip(s, 4) }

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
