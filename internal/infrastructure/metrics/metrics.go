// Package metrics exports Prometheus counters for live streams and the
// sync use cases.
package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courtside/internal/domain/entity"
)

type Collector struct {
	gatherer prometheus.Gatherer

	activeStreams       *prometheus.GaugeVec
	streamErrors        *prometheus.CounterVec
	messagesSent        *prometheus.CounterVec
	bannersShown        *prometheus.CounterVec
	bannersSuppressed   *prometheus.CounterVec
	reactionToggles     *prometheus.CounterVec
	notificationsPruned prometheus.Counter
}

// NewCollector registers every metric on reg. Pass nil to use a private
// registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		gatherer: reg,
		activeStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "courtside",
			Name:      "active_streams",
			Help:      "Live streams currently open, by kind.",
		}, []string{"kind"}),
		streamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "stream_errors_total",
			Help:      "Live streams that ended with an error, by kind.",
		}, []string{"kind"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "messages_sent_total",
			Help:      "Messages written, by thread kind.",
		}, []string{"thread_kind"}),
		bannersShown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "banners_shown_total",
			Help:      "In-app banners delivered, by banner kind.",
		}, []string{"kind"}),
		bannersSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "banners_suppressed_total",
			Help:      "Banners not shown, by reason.",
		}, []string{"reason"}),
		reactionToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "reaction_toggles_total",
			Help:      "Reaction toggles, by whether the reaction was added.",
		}, []string{"added"}),
		notificationsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "notifications_pruned_total",
			Help:      "Notifications deleted by retention.",
		}),
	}
	reg.MustRegister(
		c.activeStreams,
		c.streamErrors,
		c.messagesSent,
		c.bannersShown,
		c.bannersSuppressed,
		c.reactionToggles,
		c.notificationsPruned,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// streamKind drops the per-user or per-thread suffix of a stream name.
func streamKind(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

func (c *Collector) StreamOpened(name string) {
	c.activeStreams.WithLabelValues(streamKind(name)).Inc()
}

func (c *Collector) StreamClosed(name string, err error) {
	kind := streamKind(name)
	c.activeStreams.WithLabelValues(kind).Dec()
	if err != nil {
		c.streamErrors.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) MessageSent(kind entity.ThreadKind) {
	c.messagesSent.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) BannerShown(kind string) {
	c.bannersShown.WithLabelValues(kind).Inc()
}

func (c *Collector) BannerSuppressed(reason string) {
	c.bannersSuppressed.WithLabelValues(reason).Inc()
}

func (c *Collector) ReactionToggled(added bool) {
	c.reactionToggles.WithLabelValues(strconv.FormatBool(added)).Inc()
}

func (c *Collector) NotificationsPruned(n int) {
	c.notificationsPruned.Add(float64(n))
}
