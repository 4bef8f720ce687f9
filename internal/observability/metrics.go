package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

var (
	registerOnce sync.Once

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundgov",
			Subsystem: "processor",
			Name:      "commands_total",
			Help:      "Commands processed by opcode and outcome.",
		},
		[]string{"opcode", "outcome"},
	)
	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fundgov",
			Subsystem: "processor",
			Name:      "rejections_total",
			Help:      "Rejected commands by error kind.",
		},
		[]string{"kind"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fundgov",
			Subsystem: "processor",
			Name:      "command_duration_seconds",
			Help:      "Command processing time in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"opcode"},
	)
	depositedUnits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fundgov",
			Subsystem: "fund",
			Name:      "deposited_units_total",
			Help:      "Value units accepted into fund vaults.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commands, rejections, commandDuration, depositedUnits)
	})
}

// RecordCommand counts one processed command. kind is empty on success.
func RecordCommand(opcode, kind string, duration time.Duration) {
	RegisterMetrics()
	outcome := OutcomeCommitted
	if kind != "" {
		outcome = OutcomeRejected
		rejections.WithLabelValues(kind).Inc()
	}
	commands.WithLabelValues(opcode, outcome).Inc()
	commandDuration.WithLabelValues(opcode).Observe(duration.Seconds())
}

func RecordDeposit(amount uint64) {
	RegisterMetrics()
	depositedUnits.Add(float64(amount))
}
