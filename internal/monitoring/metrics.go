package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_booked_total",
			Help: "Total tickets successfully booked",
		},
	)

	ticketsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_cancelled_total",
			Help: "Total tickets cancelled by their owner",
		},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_checkins_total",
			Help: "Total successful check-ins by entry method",
		},
		[]string{"method"},
	)

	transfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_transfers_total",
			Help: "Total resolved ownership transfers by outcome",
		},
		[]string{"outcome"},
	)

	bookingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Total rejected booking attempts by reason",
		},
		[]string{"reason"},
	)
)

// Track booking outcomes.
func TrackBooking()                       { ticketsBooked.Inc() }
func TrackCancellation()                  { ticketsCancelled.Inc() }
func TrackBookingRejection(reason string) { bookingRejections.WithLabelValues(reason).Inc() }

// TrackCheckIn records a successful check-in. Method is one of
// "qr", "code" or "student_id".
func TrackCheckIn(method string) { checkIns.WithLabelValues(method).Inc() }

// TrackTransfer records a resolved transfer. Outcome is "accepted"
// or "rejected".
func TrackTransfer(outcome string) { transfers.WithLabelValues(outcome).Inc() }
