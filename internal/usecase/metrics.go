package usecase

import (
	"sync"

	"courtside/internal/domain/entity"
)

// Metrics receives domain counters. The prometheus collector in
// infrastructure/metrics implements it; the default discards everything.
type Metrics interface {
	MessageSent(kind entity.ThreadKind)
	BannerShown(kind string)
	BannerSuppressed(reason string)
	ReactionToggled(added bool)
	NotificationsPruned(n int)
}

type nopMetrics struct{}

func (nopMetrics) MessageSent(entity.ThreadKind) {}
func (nopMetrics) BannerShown(string)            {}
func (nopMetrics) BannerSuppressed(string)       {}
func (nopMetrics) ReactionToggled(bool)          {}
func (nopMetrics) NotificationsPruned(int)       {}

var (
	metricsMu sync.RWMutex
	metrics   Metrics = nopMetrics{}
)

func SetMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if m == nil {
		m = nopMetrics{}
	}
	metrics = m
}

func currentMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}
