package metrics

import (
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnce(t *testing.T) {
	reg := promclient.NewRegistry()

	first, err := New("test", reg)
	require.NoError(t, err)
	second, err := New("test", reg)
	require.NoError(t, err)

	first.Intent("click")
	second.Intent("click")

	assert.Equal(t, float64(2), testutil.ToFloat64(first.intents.WithLabelValues("click")))
}

func TestMetrics_Counters(t *testing.T) {
	m, err := New("test", promclient.NewRegistry())
	require.NoError(t, err)

	m.LaunchAttempt("primary", false)
	m.LaunchAttempt("primary", false)
	m.LaunchAttempt("fallback", true)
	m.ResolverTier("text-search", true)
	m.Action("click", true, 2*time.Second)
	m.LLMFallback("rate_limited")
	m.ScreenshotsSwept(3)
	m.ScreenshotsSwept(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.launchAttempts.WithLabelValues("primary", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.launchAttempts.WithLabelValues("fallback", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resolverTiers.WithLabelValues("text-search", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.actions.WithLabelValues("click", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.llmFallbacks.WithLabelValues("rate_limited")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.screenshotsSwept))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LaunchAttempt("primary", true)
		m.ResolverTier("css", false)
		m.Action("fill_form", false, time.Second)
		m.Intent("contacts")
		m.LLMFallback("other")
		m.ScreenshotsSwept(1)
	})
}
