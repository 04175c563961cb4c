package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	coursesInitialized    prometheus.Counter
	lessonsCompletedTotal prometheus.Counter
	quizzesSubmittedTotal *prometheus.CounterVec
	weeksUnlockedTotal    prometheus.Counter
	wellbeingChecksTotal  *prometheus.CounterVec
	chatConnectionsTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandwich_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sandwich_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandwich_http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		coursesInitialized = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandwich_courses_initialized_total",
			Help: "Number of courses initialized from an accepted syllabus.",
		})

		lessonsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandwich_lessons_completed_total",
			Help: "Number of lessons newly marked complete.",
		})

		quizzesSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandwich_quizzes_submitted_total",
			Help: "Number of graded quiz submissions by outcome.",
		}, []string{"outcome"})

		weeksUnlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandwich_weeks_unlocked_total",
			Help: "Number of week unlock transitions triggered by passing quizzes.",
		})

		wellbeingChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandwich_wellbeing_checks_total",
			Help: "Number of wellbeing check-ins by risk band.",
		}, []string{"risk"})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandwich_chat_connections_total",
			Help: "Number of onboarding chat websocket connections accepted.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			coursesInitialized,
			lessonsCompletedTotal,
			quizzesSubmittedTotal,
			weeksUnlockedTotal,
			wellbeingChecksTotal,
			chatConnectionsTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// CoursesInitialized exposes the course initialization counter.
func CoursesInitialized() prometheus.Counter {
	RegisterMetrics()
	return coursesInitialized
}

// LessonsCompleted exposes the lesson completion counter.
func LessonsCompleted() prometheus.Counter {
	RegisterMetrics()
	return lessonsCompletedTotal
}

// QuizzesSubmitted exposes the graded submission counter by outcome.
func QuizzesSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return quizzesSubmittedTotal
}

// WeeksUnlocked exposes the unlock transition counter.
func WeeksUnlocked() prometheus.Counter {
	RegisterMetrics()
	return weeksUnlockedTotal
}

// WellbeingChecks exposes the check-in counter by risk band.
func WellbeingChecks() *prometheus.CounterVec {
	RegisterMetrics()
	return wellbeingChecksTotal
}

// ChatConnections exposes the chat websocket connection counter.
func ChatConnections() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}
