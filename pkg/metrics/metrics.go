// Package metrics 定义服务暴露给 /metrics 的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smart_campus"

// Metrics 业务与 HTTP 指标集合；nil 接收者上的方法均为空操作，便于测试时省略
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	reconciles     *prometheus.CounterVec
	conflicts      prometheus.Counter
	entriesApplied *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
}

// New 创建独立 Registry 并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求数",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_reconcile_total",
			Help:      "班组课表提交次数（按结果）",
		}, []string{"result"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teacher_conflicts_total",
			Help:      "因教师时段冲突被拒绝的提交",
		}),
		entriesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_entries_applied_total",
			Help:      "写入的课表条目（insert / update）",
		}, []string{"op"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_cache_lookups_total",
			Help:      "班组课表缓存查询（hit / miss / error / stale）",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpLatency,
		m.reconciles, m.conflicts, m.entriesApplied, m.cacheLookups,
	)
	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

// Reconcile 记录一次班组课表提交的结果
func (m *Metrics) Reconcile(result string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(result).Inc()
}

// TeacherConflict 记录一次教师冲突
func (m *Metrics) TeacherConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// EntriesApplied 记录写入条目数
func (m *Metrics) EntriesApplied(inserted, updated int) {
	if m == nil {
		return
	}
	m.entriesApplied.WithLabelValues("insert").Add(float64(inserted))
	m.entriesApplied.WithLabelValues("update").Add(float64(updated))
}

// CacheLookup 记录缓存查询结果
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
