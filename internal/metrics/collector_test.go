package metrics

import (
	"gui-agent/internal/entity"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.ObserveAction("browser", entity.ActionClick, true, 120*time.Millisecond)
	c.ObserveAction("browser", entity.ActionClick, false, 80*time.Millisecond)
	c.ObserveScreenshot("hybrid", true, time.Second)
	c.IncParseFailure()
	c.IncParseFailure()
	c.IncIteration(entity.ModeGUI)
	c.IncOperatorInit("hybrid", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("browser", "click", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("browser", "click", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.screenshots.WithLabelValues("hybrid", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.parseFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.iterations.WithLabelValues("gui")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operatorInits.WithLabelValues("hybrid", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.actionDuration))
}
