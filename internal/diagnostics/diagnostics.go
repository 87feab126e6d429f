// Package diagnostics implements per-opcode/per-type timing counters:
// per-packet-type send and per-opcode receive profiles, per-type
// gump/target profiles, and named timer profiles, each tracking
// count/totalTime/peakTime/bytes. Each category is backed by its own
// private prometheus.Registry of CounterVec/GaugeVec instruments rather
// than a hand-rolled counter struct — there is no HTTP scrape endpoint
// here, WriteAll gathers the registry directly and formats it for the
// log sink.
package diagnostics

import (
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Profile is one named counter's accumulated stats.
type Profile struct {
	Name       string
	Count      int64
	TotalTime  time.Duration
	PeakTime   time.Duration
	TotalBytes int64 // packet profiles only; zero for plain timers
}

// categorySet backs one category (send, recv, gump, target, timer) with
// prometheus instruments keyed by profile name, registered in a private
// registry so categories never collide and nothing here needs the
// default global registry.
type categorySet struct {
	reg   *prometheus.Registry
	count *prometheus.CounterVec
	total *prometheus.CounterVec
	bytes *prometheus.CounterVec
	peak  *prometheus.GaugeVec

	countName, totalName, bytesName, peakName string

	peakMu  sync.Mutex
	peakMax map[string]time.Duration
}

func newCategorySet(category string) *categorySet {
	cs := &categorySet{
		reg:       prometheus.NewRegistry(),
		peakMax:   make(map[string]time.Duration),
		countName: category + "_count",
		totalName: category + "_total_seconds",
		bytesName: category + "_bytes",
		peakName:  category + "_peak_seconds",
	}
	cs.count = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: cs.countName,
		Help: "Observation count per profile name.",
	}, []string{"name"})
	cs.total = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: cs.totalName,
		Help: "Cumulative observed duration, in seconds, per profile name.",
	}, []string{"name"})
	cs.bytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: cs.bytesName,
		Help: "Cumulative byte length per profile name.",
	}, []string{"name"})
	cs.peak = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: cs.peakName,
		Help: "Peak single-observation duration, in seconds, per profile name.",
	}, []string{"name"})
	cs.reg.MustRegister(cs.count, cs.total, cs.bytes, cs.peak)
	return cs
}

func (cs *categorySet) record(name string, d time.Duration, byteLen int) {
	cs.count.WithLabelValues(name).Inc()
	cs.total.WithLabelValues(name).Add(d.Seconds())
	cs.bytes.WithLabelValues(name).Add(float64(byteLen))

	cs.peakMu.Lock()
	if d > cs.peakMax[name] {
		cs.peakMax[name] = d
		cs.peak.WithLabelValues(name).Set(d.Seconds())
	}
	cs.peakMu.Unlock()
}

// snapshot gathers every instrument in this category's registry and
// folds the families back into per-name Profiles, sorted by descending
// TotalTime.
func (cs *categorySet) snapshot() []Profile {
	families, err := cs.reg.Gather()
	if err != nil {
		return nil
	}

	byName := make(map[string]*Profile)
	get := func(name string) *Profile {
		p, ok := byName[name]
		if !ok {
			p = &Profile{Name: name}
			byName[name] = p
		}
		return p
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := labelValue(m, "name")
			if name == "" {
				continue
			}
			p := get(name)
			switch mf.GetName() {
			case cs.countName:
				p.Count = int64(m.GetCounter().GetValue())
			case cs.totalName:
				p.TotalTime = time.Duration(m.GetCounter().GetValue() * float64(time.Second))
			case cs.bytesName:
				p.TotalBytes = int64(m.GetCounter().GetValue())
			case cs.peakName:
				p.PeakTime = time.Duration(m.GetGauge().GetValue() * float64(time.Second))
			}
		}
	}

	out := make([]Profile, 0, len(byName))
	for _, p := range byName {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalTime > out[j].TotalTime })
	return out
}

func labelValue(m *dto.Metric, label string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == label {
			return lp.GetValue()
		}
	}
	return ""
}

// Registry is a named set of category instrument sets (send, recv, gump,
// target, timer) so WriteAll can print one sorted table per category.
type Registry struct {
	mu   sync.Mutex
	sets map[string]*categorySet
}

// NewRegistry builds an empty diagnostics registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*categorySet)}
}

func (r *Registry) getSet(category string) *categorySet {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.sets[category]
	if !ok {
		cs = newCategorySet(category)
		r.sets[category] = cs
	}
	return cs
}

// Record appends one observation of duration d (and, for packet
// categories, byteLen bytes) to the named profile in category.
func (r *Registry) Record(category, name string, d time.Duration, byteLen int) {
	r.getSet(category).record(name, d, byteLen)
}

// Observe times fn and records its duration under (category, name),
// returning fn's result. Used to wrap a packet send/receive or a named
// section of work.
func Observe[T any](r *Registry, category, name string, fn func() T) T {
	start := time.Now()
	result := fn()
	r.Record(category, name, time.Since(start), 0)
	return result
}

// Snapshot returns every profile in category, sorted by descending
// TotalTime.
func (r *Registry) Snapshot(category string) []Profile {
	r.mu.Lock()
	cs, ok := r.sets[category]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return cs.snapshot()
}

// WriteAll dumps every category's sorted-by-total-time table to w.
func (r *Registry) WriteAll(w io.Writer, categories ...string) {
	for _, category := range categories {
		profiles := r.Snapshot(category)
		io.WriteString(w, "== "+category+" ==\n")
		for _, p := range profiles {
			io.WriteString(w, formatRow(p))
		}
	}
}

func formatRow(p Profile) string {
	return p.Name + "\tcount=" + strconv.FormatInt(p.Count, 10) +
		"\ttotal=" + p.TotalTime.String() +
		"\tpeak=" + p.PeakTime.String() +
		"\tbytes=" + strconv.FormatInt(p.TotalBytes, 10) + "\n"
}
