package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const unmatchedRoute = "unmatched"

// Metrics collects request metrics per chi route pattern and exposes them,
// together with registered gauges, in the Prometheus text format.
type Metrics struct {
	mu      sync.Mutex
	routes  map[routeKey]*routeStats
	gauges  []gauge
	active  atomic.Int64
	timeout time.Duration
}

type routeKey struct {
	method string
	route  string
}

type routeStats struct {
	byStatus map[int]int64
	sum      float64
	count    int64
}

type gauge struct {
	name  string
	help  string
	value func(context.Context) (float64, error)
}

func NewMetrics() *Metrics {
	return &Metrics{
		routes:  make(map[routeKey]*routeStats),
		timeout: 5 * time.Second,
	}
}

// Gauge registers a value computed at scrape time, such as the number of
// devices currently on the premises.
func (m *Metrics) Gauge(name, help string, value func(context.Context) (float64, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = append(m.gauges, gauge{name: name, help: help, value: value})
}

func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.active.Add(1)
			defer m.active.Add(-1)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.observe(r.Method, routePattern(r), rw.status, time.Since(start))
		})
	}
}

// routePattern is read after the handler ran, once chi has matched the
// route. Raw paths are never used as labels.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

func (m *Metrics) observe(method, route string, status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := routeKey{method: method, route: route}
	st, ok := m.routes[key]
	if !ok {
		st = &routeStats{byStatus: make(map[int]int64)}
		m.routes[key] = st
	}
	st.byStatus[status]++
	st.sum += d.Seconds()
	st.count++
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		m.mu.Lock()
		keys := make([]routeKey, 0, len(m.routes))
		for k := range m.routes {
			keys = append(keys, k)
		}
		snapshot := make(map[routeKey]routeStats, len(keys))
		for _, k := range keys {
			st := m.routes[k]
			cp := routeStats{byStatus: make(map[int]int64, len(st.byStatus)), sum: st.sum, count: st.count}
			for code, n := range st.byStatus {
				cp.byStatus[code] = n
			}
			snapshot[k] = cp
		}
		gauges := append([]gauge(nil), m.gauges...)
		m.mu.Unlock()

		sort.Slice(keys, func(i, j int) bool {
			if keys[i].route != keys[j].route {
				return keys[i].route < keys[j].route
			}
			return keys[i].method < keys[j].method
		})

		fmt.Fprintf(w, "# HELP checkpoint_http_active_requests Number of in-flight HTTP requests.\n")
		fmt.Fprintf(w, "# TYPE checkpoint_http_active_requests gauge\n")
		fmt.Fprintf(w, "checkpoint_http_active_requests %d\n\n", m.active.Load())

		fmt.Fprintf(w, "# HELP checkpoint_http_requests_total HTTP requests by route and status.\n")
		fmt.Fprintf(w, "# TYPE checkpoint_http_requests_total counter\n")
		for _, k := range keys {
			st := snapshot[k]
			codes := make([]int, 0, len(st.byStatus))
			for code := range st.byStatus {
				codes = append(codes, code)
			}
			sort.Ints(codes)
			for _, code := range codes {
				fmt.Fprintf(w, "checkpoint_http_requests_total{method=%q,route=%q,status=%q} %d\n",
					k.method, k.route, strconv.Itoa(code), st.byStatus[code])
			}
		}

		fmt.Fprintf(w, "\n# HELP checkpoint_http_request_duration_seconds HTTP request duration by route.\n")
		fmt.Fprintf(w, "# TYPE checkpoint_http_request_duration_seconds summary\n")
		for _, k := range keys {
			st := snapshot[k]
			fmt.Fprintf(w, "checkpoint_http_request_duration_seconds_sum{method=%q,route=%q} %.6f\n", k.method, k.route, st.sum)
			fmt.Fprintf(w, "checkpoint_http_request_duration_seconds_count{method=%q,route=%q} %d\n", k.method, k.route, st.count)
		}

		ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
		defer cancel()
		for _, g := range gauges {
			v, err := g.value(ctx)
			if err != nil {
				// A failed gauge is left out rather than reported as zero.
				continue
			}
			fmt.Fprintf(w, "\n# HELP %s %s\n# TYPE %s gauge\n%s %g\n", g.name, g.help, g.name, g.name, v)
		}
	}
}
