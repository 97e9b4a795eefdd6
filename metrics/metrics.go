// Package metrics exports automation and intent counters to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors shared by the browser, resolver, automation
// and intent packages.
type Metrics struct {
	launchAttempts   *promclient.CounterVec
	resolverTiers    *promclient.CounterVec
	actions          *promclient.CounterVec
	actionDuration   *promclient.HistogramVec
	intents          *promclient.CounterVec
	llmFallbacks     *promclient.CounterVec
	screenshotsSwept promclient.Counter
}

// New registers the collectors under namespace on reg.
func New(namespace string, reg promclient.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "pageagent"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	m := &Metrics{
		launchAttempts: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "browser_launch_attempts_total",
			Help:      "Headless browser launch attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),
		resolverTiers: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_tier_total",
			Help:      "Element resolver tier results.",
		}, []string{"strategy", "outcome"}),
		actions: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "automation_actions_total",
			Help:      "Automation operations by action and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "automation_action_duration_seconds",
			Help:      "Latency of automation operations including browser launch.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"action"}),
		intents: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "intent_matches_total",
			Help:      "Chat messages matched to an intent rule.",
		}, []string{"intent"}),
		llmFallbacks: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallback_replies_total",
			Help:      "Completion failures answered with an apology.",
		}, []string{"reason"}),
		screenshotsSwept: promclient.NewCounter(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "screenshots_swept_total",
			Help:      "Expired screenshot files deleted by the sweeper.",
		}),
	}

	var err error
	if m.launchAttempts, err = registerCounterVec(reg, m.launchAttempts); err != nil {
		return nil, err
	}
	if m.resolverTiers, err = registerCounterVec(reg, m.resolverTiers); err != nil {
		return nil, err
	}
	if m.actions, err = registerCounterVec(reg, m.actions); err != nil {
		return nil, err
	}
	if m.intents, err = registerCounterVec(reg, m.intents); err != nil {
		return nil, err
	}
	if m.llmFallbacks, err = registerCounterVec(reg, m.llmFallbacks); err != nil {
		return nil, err
	}
	if err := reg.Register(m.actionDuration); err != nil {
		are, ok := err.(promclient.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register action histogram: %w", err)
		}
		existing, ok := are.ExistingCollector.(*promclient.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("register action histogram: %w", err)
		}
		m.actionDuration = existing
	}
	if err := reg.Register(m.screenshotsSwept); err != nil {
		are, ok := err.(promclient.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register sweep counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(promclient.Counter)
		if !ok {
			return nil, fmt.Errorf("register sweep counter: %w", err)
		}
		m.screenshotsSwept = existing
	}

	return m, nil
}

func registerCounterVec(reg promclient.Registerer, c *promclient.CounterVec) (*promclient.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(promclient.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*promclient.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register counter: %w", err)
	}
	return c, nil
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// LaunchAttempt records one browser launch try. mode is "primary" or "fallback".
func (m *Metrics) LaunchAttempt(mode string, ok bool) {
	if m == nil {
		return
	}
	m.launchAttempts.WithLabelValues(mode, outcome(ok)).Inc()
}

// ResolverTier records whether a resolver strategy found the element.
func (m *Metrics) ResolverTier(strategy string, ok bool) {
	if m == nil {
		return
	}
	m.resolverTiers.WithLabelValues(strategy, outcome(ok)).Inc()
}

// Action records an automation operation outcome and its latency.
func (m *Metrics) Action(action string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome(ok)).Inc()
	m.actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// Intent records a matched intent rule.
func (m *Metrics) Intent(name string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(name).Inc()
}

// LLMFallback records a completion failure answered with an apology.
func (m *Metrics) LLMFallback(reason string) {
	if m == nil {
		return
	}
	m.llmFallbacks.WithLabelValues(reason).Inc()
}

// ScreenshotsSwept adds n deleted screenshots.
func (m *Metrics) ScreenshotsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.screenshotsSwept.Add(float64(n))
}
