// Package metrics exposes the polled service health in the Prometheus text
// exposition format so an existing Prometheus can scrape accd.
package metrics

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/aicommandcenter/aicc/server/internal/store"
)

// Metric names.
const (
	ServiceUp        = "aicc_service_up"
	ServiceLatencyMS = "aicc_service_latency_ms"
	ServiceUptimePct = "aicc_service_uptime_percent"
	ServicePolls     = "aicc_service_polls_total"
)

// Families converts the live store entries into metric families. Services
// without a recorded latency are omitted from the latency family.
func Families(entries []store.Entry) []*dto.MetricFamily {
	up := family(ServiceUp, "1 if the service's last probe was healthy, 0 otherwise.", dto.MetricType_GAUGE)
	latency := family(ServiceLatencyMS, "Round-trip latency of the service's last probe in milliseconds.", dto.MetricType_GAUGE)
	uptime := family(ServiceUptimePct, "Share of healthy probes over the recent poll window, 0-100.", dto.MetricType_GAUGE)
	polls := family(ServicePolls, "Probes recorded for the service since accd started.", dto.MetricType_COUNTER)

	for _, e := range entries {
		labels := []*dto.LabelPair{{Name: ptr("service"), Value: ptr(string(e.Service))}}

		v := 0.0
		if e.Status.Healthy {
			v = 1
		}
		up.Metric = append(up.Metric, gauge(labels, v))
		if ms, ok := e.Status.Latency(); ok {
			latency.Metric = append(latency.Metric, gauge(labels, float64(ms)))
		}
		uptime.Metric = append(uptime.Metric, gauge(labels, e.UptimePct))
		polls.Metric = append(polls.Metric, &dto.Metric{
			Label:   labels,
			Counter: &dto.Counter{Value: ptr(float64(e.Polls))},
		})
	}

	out := make([]*dto.MetricFamily, 0, 4)
	for _, mf := range []*dto.MetricFamily{up, latency, uptime, polls} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// Handler serves the store's live entries at /metrics.
func Handler(st *store.Store) http.Handler {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range Families(st.List()) {
			if err := enc.Encode(mf); err != nil {
				slog.Warn("metrics: encode failed", "family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

func family(name, help string, t dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{Name: ptr(name), Help: ptr(help), Type: t.Enum()}
}

func gauge(labels []*dto.LabelPair, v float64) *dto.Metric {
	return &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: ptr(v)}}
}

func ptr[T any](v T) *T { return &v }
