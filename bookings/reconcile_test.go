package bookings

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fixlify/homeservices-api/models"
	"github.com/fixlify/homeservices-api/payments"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T, env *testEnv, cfg Config) *Reconciler {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := NewReconciler(env.store, env.gateway, env.notifier, env.sink, cfg, log)
	r.now = func() time.Time { return fixedNow }
	return r
}

func pendingPayment(sessionID string) *models.Payment {
	return &models.Payment{
		ID:          uuid.New(),
		SessionID:   &sessionID,
		AmountCents: 549,
		Currency:    "USD",
		Status:      PaymentPending,
		CreatedAt:   fixedNow.Add(-time.Hour),
	}
}

func TestReconcilePaidCompletesPayment(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())
	env.gateway.statusFn = func(string) (payments.SessionStatus, error) { return payments.SessionPaid, nil }

	seedBooking(env, StatusPending, MethodOnline, nil, pendingPayment("sess_abc"))

	booking, err := rec.BySession(context.Background(), "sess_abc")
	require.NoError(t, err)

	assert.Equal(t, PaymentCompleted, booking.Payment.Status)
	// Without confirm-on-payment the booking waits for a worker.
	assert.Equal(t, string(StatusPending), booking.Status)
	assert.Equal(t, 1, env.notifier.count(EventPaymentConfirmed))

	// Same gateway status again: a no-op.
	again, err := rec.BySession(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, again.Payment.Status)
	assert.Equal(t, 1, env.notifier.count(EventPaymentConfirmed), "re-reconciling must not re-fire effects")
}

func TestReconcilePaidConfirmOnPayment(t *testing.T) {
	cfg := defaultConfig()
	cfg.ConfirmOnPayment = true
	env := newTestEnv(t, cfg)
	rec := newTestReconciler(t, env, cfg)
	env.gateway.statusFn = func(string) (payments.SessionStatus, error) { return payments.SessionPaid, nil }

	seedBooking(env, StatusPending, MethodOnline, nil, pendingPayment("sess_auto"))

	booking, err := rec.BySession(context.Background(), "sess_auto")
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, booking.Payment.Status)
	assert.Equal(t, string(StatusAccepted), booking.Status)
}

func TestReconcileFailedLeavesBookingPending(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())
	env.gateway.statusFn = func(string) (payments.SessionStatus, error) { return payments.SessionFailed, nil }

	seedBooking(env, StatusPending, MethodOnline, nil, pendingPayment("sess_bad"))

	booking, err := rec.BySession(context.Background(), "sess_bad")
	require.NoError(t, err)

	assert.Equal(t, PaymentFailed, booking.Payment.Status)
	// A failed charge never auto-rejects; the customer may retry.
	assert.Equal(t, string(StatusPending), booking.Status)
	assert.Equal(t, 1, env.notifier.count(EventPaymentFailed))
}

func TestReconcileGatewayPendingIsNoOp(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())

	seedBooking(env, StatusPending, MethodOnline, nil, pendingPayment("sess_wait"))

	booking, err := rec.BySession(context.Background(), "sess_wait")
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, booking.Payment.Status)
	assert.Empty(t, env.notifier.events)
}

func TestReconcileUnknownSession(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())

	_, err := rec.BySession(context.Background(), "sess_nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyPaymentAuthorization(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())

	id := seedBooking(env, StatusPending, MethodOnline, nil, pendingPayment("sess_own"))

	_, err := rec.ByBooking(context.Background(), Principal{ID: uuid.New(), Role: RoleCustomer}, id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = rec.ByBooking(context.Background(), env.customer, id)
	assert.NoError(t, err)
}

func TestVerifyPaymentRejectsCashBookings(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())

	id := seedBooking(env, StatusPending, MethodCOD, nil, nil)

	_, err := rec.ByBooking(context.Background(), env.customer, id)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSweepSettlesStalePayments(t *testing.T) {
	env := newTestEnv(t, defaultConfig())
	rec := newTestReconciler(t, env, defaultConfig())
	env.gateway.statusFn = func(sessionID string) (payments.SessionStatus, error) {
		if sessionID == "sess_old" {
			return payments.SessionPaid, nil
		}
		return payments.SessionPending, nil
	}

	old := seedBooking(env, StatusPending, MethodOnline, nil, pendingPayment("sess_old"))

	// Too fresh for the sweep window.
	freshPayment := pendingPayment("sess_new")
	freshPayment.CreatedAt = fixedNow.Add(-time.Minute)
	fresh := seedBooking(env, StatusPending, MethodOnline, nil, freshPayment)

	n, err := rec.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	settled, err := env.store.FindByID(context.Background(), old)
	require.NoError(t, err)
	assert.Equal(t, PaymentCompleted, settled.Payment.Status)

	waiting, err := env.store.FindByID(context.Background(), fresh)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, waiting.Payment.Status)
}
