package jobs

import (
	"context"
	"time"

	"github.com/fixlify/homeservices-api/bookings"
	"github.com/sirupsen/logrus"
)

// BookingJobs holds the cron bodies for the booking subsystem. Each run is
// independent; a failed sweep is logged and retried on the next tick.
type BookingJobs struct {
	svc *bookings.Service
	rec *bookings.Reconciler
	log *logrus.Logger
}

func NewBookingJobs(svc *bookings.Service, rec *bookings.Reconciler, log *logrus.Logger) *BookingJobs {
	return &BookingJobs{svc: svc, rec: rec, log: log}
}

// ExpirePending auto-rejects bookings no worker has picked up within the
// configured timeout, refunding any completed payment.
func (j *BookingJobs) ExpirePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := j.svc.ExpireStalePending(ctx); err != nil {
		j.log.WithError(err).Error("pending-timeout sweep failed")
	}
}

// ReconcilePayments re-polls the gateway for payments stuck in pending,
// covering webhooks that never arrived.
func (j *BookingJobs) ReconcilePayments() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := j.rec.Sweep(ctx)
	if err != nil {
		j.log.WithError(err).Error("reconciliation sweep failed")
		return
	}
	if n > 0 {
		j.log.WithField("count", n).Info("reconciliation sweep settled payments")
	}
}
