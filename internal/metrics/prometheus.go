package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var RemindersAttemptedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminders_attempted_total",
		Help: "Total number of reminder emails attempted",
	},
	[]string{"status", "provider"},
)

var ReminderSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "reminder_send_duration_seconds",
		Help:    "Time taken to hand a reminder email to the mail provider",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

var ReminderRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminder_runs_total",
		Help: "Total number of reminder dispatch runs",
	},
	[]string{"status"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
}

func InitDispatchMetrics() {
	prometheus.MustRegister(RemindersAttemptedTotal)
	prometheus.MustRegister(ReminderSendDuration)
	prometheus.MustRegister(ReminderRunsTotal)
}
