// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the BiteLog API.
var (
	// HTTP.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"method", "route"},
	)

	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Catalog.
	MealsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meals_created_total",
			Help: "Total number of meals added to the catalog",
		},
		[]string{"source"},
	)

	LikesToggledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_toggled_total",
			Help: "Total number of like toggles",
		},
		[]string{"entity", "action"},
	)

	RatingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_total",
			Help: "Total number of ratings recorded",
		},
		[]string{"action"},
	)

	ReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_total",
			Help: "Total number of review lifecycle events",
		},
		[]string{"action"},
	)

	MealRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meal_requests_total",
			Help: "Total number of meal request lifecycle events",
		},
		[]string{"action"},
	)

	UpcomingPromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upcoming_promotions_total",
			Help: "Total number of upcoming meals published to the catalog",
		},
		[]string{"trigger"},
	)

	// Membership.
	PaymentsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Total number of membership payments recorded",
		},
		[]string{"package"},
	)

	PaymentIntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total number of payment intents requested",
		},
		[]string{"status"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerNotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_notifications_failed_total",
			Help: "Total failed notification attempts",
		},
		[]string{"reason"},
	)

	SchedulerPendingRequestsCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_pending_requests_count",
			Help: "Number of pending meal requests in last digest",
		},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduler job",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"job"},
	)
)

// RecordMealCreated records a meal entering the catalog.
func RecordMealCreated(source string) {
	MealsCreatedTotal.WithLabelValues(source).Inc()
}

// RecordLikeToggled records a like or unlike on a meal or upcoming meal.
func RecordLikeToggled(entity string, liked bool) {
	action := "unlike"
	if liked {
		action = "like"
	}
	LikesToggledTotal.WithLabelValues(entity, action).Inc()
}

// RecordRating records a rating event ("created", "changed" or "unchanged").
func RecordRating(action string) {
	RatingsTotal.WithLabelValues(action).Inc()
}

// RecordReview records a review lifecycle event.
func RecordReview(action string) {
	ReviewsTotal.WithLabelValues(action).Inc()
}

// RecordMealRequest records a meal request lifecycle event.
func RecordMealRequest(action string) {
	MealRequestsTotal.WithLabelValues(action).Inc()
}

// RecordPromotion records an upcoming meal publication.
func RecordPromotion(trigger string) {
	UpcomingPromotionsTotal.WithLabelValues(trigger).Inc()
}

// RecordPayment records a membership payment.
func RecordPayment(packageName string) {
	PaymentsRecordedTotal.WithLabelValues(packageName).Inc()
}

// RecordPaymentIntent records a payment intent request outcome.
func RecordPaymentIntent(status string) {
	PaymentIntentsTotal.WithLabelValues(status).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited() {
	RateLimitedRequestsTotal.Inc()
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// RecordSchedulerNotificationFailed records a failed notification attempt.
func RecordSchedulerNotificationFailed(reason string) {
	SchedulerNotificationsFailedTotal.WithLabelValues(reason).Inc()
}

// SetSchedulerPendingRequests sets the number of pending requests in the last digest.
func SetSchedulerPendingRequests(count int) {
	SchedulerPendingRequestsCount.Set(float64(count))
}

// SetSchedulerLastRun sets the timestamp of the last run of job.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// GinMiddleware records request counts and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDurationSeconds.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
