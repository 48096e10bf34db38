//go:build !tinygo

package sim

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"ember/emberos/kernel"
)

// Report summarizes a run.
type Report struct {
	Workload   string  `yaml:"workload"`
	Ms         uint32  `yaml:"ms"`
	Cycles     int     `yaml:"cycles"`
	Dispatches uint64  `yaml:"dispatches"`
	Idles      uint64  `yaml:"idles"`
	IdleShare  float64 `yaml:"idle_share"`
	Fault      string  `yaml:"fault,omitempty"`
	Threads    []Row   `yaml:"threads"`
	Levels     []Level `yaml:"levels"`
}

// Row is one thread's line in a report.
type Row struct {
	ID         kernel.ThreadID `yaml:"id"`
	Name       string          `yaml:"name"`
	Priority   string          `yaml:"priority"`
	Period     uint32          `yaml:"period"`
	Dispatches int             `yaml:"dispatches"`
	Work       uint64          `yaml:"work"`
	Share      float64         `yaml:"share"`
	Releases   int             `yaml:"releases"`
	Latency    Latency         `yaml:"latency"`
	FreeWords  int             `yaml:"free_words"`
}

// Latency is the delay in ms between a release and the dispatch that
// serves it.
type Latency struct {
	Samples int     `yaml:"samples"`
	Mean    float64 `yaml:"mean"`
	StdDev  float64 `yaml:"stddev"`
	P50     float64 `yaml:"p50"`
	P95     float64 `yaml:"p95"`
	Max     float64 `yaml:"max"`
}

// Level totals a priority level.
type Level struct {
	Priority   string  `yaml:"priority"`
	Threads    int     `yaml:"threads"`
	Dispatches int     `yaml:"dispatches"`
	Share      float64 `yaml:"share"`
}

// Report builds a report from the trace recorded so far.
func (m *Sim) Report() *Report {
	st := m.s.Stats()
	rep := &Report{
		Workload:   m.w.Name,
		Ms:         st.NowMs,
		Cycles:     m.port.Cycles(),
		Dispatches: st.Dispatches,
		Idles:      st.Idles,
	}
	if m.fault != nil {
		rep.Fault = m.fault.Error()
	}

	n := m.s.Count()
	busy := make([]uint32, n)
	dispatches := make([]int, n)
	releases := make([]int, n)
	latencies := make([][]float64, n)
	entered := make([]uint32, n)
	released := make([]int64, n)
	for i := range released {
		released[i] = -1
	}
	var idle uint32

	events := m.rec.Events()
	for i, ev := range events {
		switch ev.Kind {
		case EventDispatch:
			dispatches[ev.Thread]++
			entered[ev.Thread] = ev.Ms
			if r := released[ev.Thread]; r >= 0 {
				latencies[ev.Thread] = append(latencies[ev.Thread], float64(int64(ev.Ms)-r))
				released[ev.Thread] = -1
			}
		case EventSuspend:
			busy[ev.Thread] += ev.Ms - entered[ev.Thread]
		case EventRelease:
			releases[ev.Thread]++
			released[ev.Thread] = int64(ev.Ms)
		case EventIdle:
			end := st.NowMs
			if i+1 < len(events) {
				end = events[i+1].Ms
			}
			idle += end - ev.Ms
		}
	}

	total := float64(st.NowMs)
	levels := make(map[kernel.Priority]*Level)
	for i := 0; i < n; i++ {
		info, _ := m.s.Info(kernel.ThreadID(i))
		row := Row{
			ID:         info.ID,
			Name:       info.Name,
			Priority:   info.Priority.String(),
			Period:     info.Period,
			Dispatches: dispatches[i],
			Work:       m.work[i],
			Share:      ratio(float64(busy[i]), total),
			Releases:   releases[i],
			Latency:    summarize(latencies[i]),
			FreeWords:  info.FreeWords,
		}
		rep.Threads = append(rep.Threads, row)

		lv, ok := levels[info.Priority]
		if !ok {
			lv = &Level{Priority: info.Priority.String()}
			levels[info.Priority] = lv
		}
		lv.Threads++
		lv.Dispatches += row.Dispatches
		lv.Share += row.Share
	}
	rep.IdleShare = ratio(float64(idle), total)

	slices.SortFunc(rep.Threads, func(a, b Row) int {
		pa, _ := ParsePriority(a.Priority)
		pb, _ := ParsePriority(b.Priority)
		if pa != pb {
			return int(pb) - int(pa)
		}
		return int(a.ID) - int(b.ID)
	})

	prios := maps.Keys(levels)
	slices.SortFunc(prios, func(a, b kernel.Priority) int { return int(b) - int(a) })
	for _, p := range prios {
		rep.Levels = append(rep.Levels, *levels[p])
	}
	return rep
}

func summarize(xs []float64) Latency {
	l := Latency{Samples: len(xs)}
	if len(xs) == 0 {
		return l
	}
	slices.Sort(xs)
	l.Mean = stat.Mean(xs, nil)
	if len(xs) > 1 {
		l.StdDev = stat.StdDev(xs, nil)
	}
	l.P50 = stat.Quantile(0.5, stat.Empirical, xs, nil)
	l.P95 = stat.Quantile(0.95, stat.Empirical, xs, nil)
	l.Max = floats.Max(xs)
	return l
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// WriteText writes the report as aligned columns.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "workload %q: %d ms, %d cycles, %d dispatches, %d idles (%.1f%% idle)\n",
		r.Workload, r.Ms, r.Cycles, r.Dispatches, r.Idles, 100*r.IdleShare)
	if r.Fault != "" {
		fmt.Fprintf(w, "fault: %s\n", r.Fault)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "id\tname\tprio\tperiod\tdisp\twork\tshare\trel\tlat.mean\tlat.sd\tlat.p50\tlat.p95\tlat.max\tfree\t")
	for _, row := range r.Threads {
		lat := row.Latency
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%.1f%%\t%d\t%s\t%s\t%s\t%s\t%s\t%d\t\n",
			row.ID, row.Name, row.Priority, row.Period, row.Dispatches, row.Work,
			100*row.Share, row.Releases,
			fmtMs(lat, lat.Mean), fmtMs(lat, lat.StdDev), fmtMs(lat, lat.P50),
			fmtMs(lat, lat.P95), fmtMs(lat, lat.Max), row.FreeWords)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, lv := range r.Levels {
		if _, err := fmt.Fprintf(w, "level %-6s threads=%d dispatches=%d share=%.1f%%\n",
			lv.Priority, lv.Threads, lv.Dispatches, 100*lv.Share); err != nil {
			return err
		}
	}
	return nil
}

func fmtMs(l Latency, v float64) string {
	if l.Samples == 0 || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
