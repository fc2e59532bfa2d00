package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"
)

// Collector counts bot interactions by outcome and tracks handler latency.
type Collector struct {
	mu sync.Mutex

	started time.Time

	latencies []time.Duration
	outcomes  map[string]int
	total     int

	// Infrastructure failures (database, Telegram API), not user rejections.
	errorCounts map[string]int
	totalErrors int
}

func New() *Collector {
	return &Collector{
		started:     time.Now(),
		outcomes:    make(map[string]int),
		errorCounts: make(map[string]int),
	}
}

func (c *Collector) RecordOutcome(kind string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies = append(c.latencies, duration)
	c.outcomes[kind]++
	c.total++
}

func (c *Collector) RecordFailure(stage string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalErrors++
	c.errorCounts[stage]++
}

// Count returns how many interactions ended with the given outcome.
func (c *Collector) Count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[kind]
}

func (c *Collector) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalErrors
}

func (c *Collector) PrintReport(out io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "\n📊 \033[1mSESSION REPORT\033[0m")
	fmt.Fprintln(out, "────────────────────────────────────────")

	fmt.Fprintf(w, "  Uptime:\t%s\n", time.Since(c.started).Round(time.Second))
	fmt.Fprintf(w, "  Interactions:\t%d\n", c.total)
	fmt.Fprintln(w, "")

	if len(c.latencies) > 0 {
		sorted := append([]time.Duration(nil), c.latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		p50 := sorted[len(sorted)/2]
		p90 := sorted[int(float64(len(sorted))*0.9)]

		fmt.Fprintln(w, "\033[1;36m[ LATENCY ]\033[0m")
		fmt.Fprintf(w, "  Avg Duration:\t%v\n", average(sorted))
		fmt.Fprintf(w, "  p50 (Median):\t%v\n", p50)
		fmt.Fprintf(w, "  p90 (Slowest 10%%):\t%v\n", p90)
		fmt.Fprintln(w, "")
	}

	fmt.Fprintln(w, "\033[1;36m[ OUTCOMES ]\033[0m")
	if c.total == 0 {
		fmt.Fprintln(w, "  No interactions.")
	}
	for _, k := range sortedKeys(c.outcomes) {
		pct := float64(c.outcomes[k]) / float64(c.total) * 100
		fmt.Fprintf(w, "  %s:\t%d (%.1f%%)\n", k, c.outcomes[k], pct)
	}
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "\033[1;36m[ ERRORS ]\033[0m")
	fmt.Fprintf(w, "  Total Failures:\t%d\n", c.totalErrors)
	for _, k := range sortedKeys(c.errorCounts) {
		fmt.Fprintf(w, "  %s:\t%d\n", k, c.errorCounts[k])
	}

	w.Flush()
	fmt.Fprintln(out, "")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func average(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return time.Duration(int64(sum) / int64(len(d)))
}
