package metrics

import (
	"sync/atomic"
	"time"

	"go-voicemaster/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry records room lifecycle and command metrics both as prometheus
// collectors and as plain counters for the /stats command.
type Registry struct {
	prom *prometheus.Registry

	roomsProvisioned *prometheus.CounterVec
	provisionFailed  prometheus.Counter
	roomsReaped      prometheus.Counter
	reapsSkipped     *prometheus.CounterVec
	commands         *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec
	callErrors       *prometheus.CounterVec
	trackedRooms     prometheus.Gauge
	sweeps           prometheus.Counter

	provisioned uint64
	failed      uint64
	reaped      uint64
	executed    uint64
	rejected    uint64

	Latency     *LatencySet
	VoiceEvents *EventRateCounter
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Registry{
		prom: reg,
		roomsProvisioned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemaster_rooms_provisioned_total",
			Help: "Rooms created for members joining a trigger channel",
		}, []string{"visibility"}),
		provisionFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "voicemaster_provision_failures_total",
			Help: "Trigger joins that did not produce a room",
		}),
		roomsReaped: f.NewCounter(prometheus.CounterOpts{
			Name: "voicemaster_rooms_reaped_total",
			Help: "Empty rooms deleted",
		}),
		reapsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemaster_reaps_skipped_total",
			Help: "Reap attempts that left the room in place",
		}, []string{"reason"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemaster_commands_total",
			Help: "Owner commands by outcome",
		}, []string{"command", "outcome"}),
		callDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicemaster_external_call_duration_seconds",
			Help:    "Latency of platform calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		callErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicemaster_external_call_errors_total",
			Help: "Failed platform calls",
		}, []string{"op"}),
		trackedRooms: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicemaster_tracked_rooms",
			Help: "Rooms with an owner record",
		}),
		sweeps: f.NewCounter(prometheus.CounterOpts{
			Name: "voicemaster_sweeps_total",
			Help: "Completed periodic sweeps",
		}),
		Latency:     NewLatencySet(),
		VoiceEvents: NewEventRateCounter(),
	}
}

var GlobalRegistry *Registry

func InitGlobalRegistry() *Registry {
	GlobalRegistry = NewRegistry()
	return GlobalRegistry
}

func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}

func (r *Registry) RoomProvisioned(v models.VisibilityClass) {
	atomic.AddUint64(&r.provisioned, 1)
	r.roomsProvisioned.WithLabelValues(v.String()).Inc()
}

func (r *Registry) ProvisionFailed() {
	atomic.AddUint64(&r.failed, 1)
	r.provisionFailed.Inc()
}

func (r *Registry) RoomReaped() {
	atomic.AddUint64(&r.reaped, 1)
	r.roomsReaped.Inc()
}

func (r *Registry) ReapSkipped(reason string) {
	r.reapsSkipped.WithLabelValues(reason).Inc()
}

func (r *Registry) CommandExecuted(command, outcome string) {
	if outcome == "ok" {
		atomic.AddUint64(&r.executed, 1)
	} else {
		atomic.AddUint64(&r.rejected, 1)
	}
	r.commands.WithLabelValues(command, outcome).Inc()
}

func (r *Registry) ExternalCall(op string, d time.Duration, err error) {
	r.callDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.callErrors.WithLabelValues(op).Inc()
	}
	r.Latency.Get(op).Record(d, err != nil)
}

func (r *Registry) SetTrackedRooms(n int) {
	r.trackedRooms.Set(float64(n))
}

func (r *Registry) SweepCompleted() {
	r.sweeps.Inc()
}

type Snapshot struct {
	Provisioned     uint64
	ProvisionFailed uint64
	Reaped          uint64
	Commands        uint64
	Rejected        uint64
	VoiceEvents     uint64
	VoiceEventRate  float64
	Latency         map[string]LatencyStats
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Provisioned:     atomic.LoadUint64(&r.provisioned),
		ProvisionFailed: atomic.LoadUint64(&r.failed),
		Reaped:          atomic.LoadUint64(&r.reaped),
		Commands:        atomic.LoadUint64(&r.executed),
		Rejected:        atomic.LoadUint64(&r.rejected),
		VoiceEvents:     r.VoiceEvents.GetCount(),
		VoiceEventRate:  r.VoiceEvents.GetRate(),
		Latency:         r.Latency.Snapshot(),
	}
}
