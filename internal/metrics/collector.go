package metrics

import (
	"gui-agent/internal/entity"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gui_agent"

// Collector records agent and operator metrics on an injected registry.
type Collector struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	screenshots    *prometheus.CounterVec
	screenshotTime *prometheus.HistogramVec
	parseFailures  prometheus.Counter
	iterations     *prometheus.CounterVec
	operatorInits  *prometheus.CounterVec
}

func NewCollector(registerer prometheus.Registerer) *Collector {
	c := &Collector{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed operator actions.",
		}, []string{"backend", "action", "success"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Operator action latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"backend", "action"}),
		screenshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screenshots_total",
			Help:      "Screenshots captured.",
		}, []string{"backend", "success"}),
		screenshotTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "screenshot_duration_seconds",
			Help:      "Screenshot capture latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Model turns that produced no parsable action.",
		}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_iterations_total",
			Help:      "Agent loop iterations.",
		}, []string{"mode"}),
		operatorInits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operator_initializations_total",
			Help:      "Operator initialization attempts.",
		}, []string{"backend", "success"}),
	}

	registerer.MustRegister(
		c.actionsTotal,
		c.actionDuration,
		c.screenshots,
		c.screenshotTime,
		c.parseFailures,
		c.iterations,
		c.operatorInits,
	)

	return c
}

func (c *Collector) ObserveAction(backend string, action entity.ActionType, success bool, elapsed time.Duration) {
	c.actionsTotal.WithLabelValues(backend, string(action), strconv.FormatBool(success)).Inc()
	c.actionDuration.WithLabelValues(backend, string(action)).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveScreenshot(backend string, success bool, elapsed time.Duration) {
	c.screenshots.WithLabelValues(backend, strconv.FormatBool(success)).Inc()
	c.screenshotTime.WithLabelValues(backend).Observe(elapsed.Seconds())
}

func (c *Collector) IncParseFailure() {
	c.parseFailures.Inc()
}

func (c *Collector) IncIteration(mode entity.ModeID) {
	c.iterations.WithLabelValues(string(mode)).Inc()
}

func (c *Collector) IncOperatorInit(backend string, success bool) {
	c.operatorInits.WithLabelValues(backend, strconv.FormatBool(success)).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveAction(string, entity.ActionType, bool, time.Duration) {}
func (Nop) ObserveScreenshot(string, bool, time.Duration)                {}
func (Nop) IncParseFailure()                                             {}
func (Nop) IncIteration(entity.ModeID)                                   {}
func (Nop) IncOperatorInit(string, bool)                                 {}
