package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fixlify/homeservices-api/models"
	"github.com/sirupsen/logrus"
)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

type Config struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

// Mailer sends booking emails through the Brevo transactional API. Delivery
// is fire-and-forget: failures are logged and never surface to the caller.
type Mailer struct {
	cfg     Config
	client  *http.Client
	log     *logrus.Logger
	enabled bool
}

func NewMailer(cfg Config, log *logrus.Logger) *Mailer {
	enabled := cfg.APIKey != "" && cfg.SenderEmail != "" && cfg.SenderName != ""
	if !enabled {
		log.Warn("email service not configured, booking emails will be skipped")
	}
	return &Mailer{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
		enabled: enabled,
	}
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// BookingEvent mails the booking's customer and, when assigned, its worker.
func (m *Mailer) BookingEvent(booking *models.Booking, event string) {
	customerSubject, customerBody, workerSubject, workerBody := composeBookingEmail(booking, event)

	if customerSubject != "" && booking.Customer.Email != "" {
		go m.send(booking.Customer.Email, booking.Customer.FullName, customerSubject, customerBody)
	}
	if workerSubject != "" && booking.Worker != nil && booking.Worker.Email != "" {
		go m.send(booking.Worker.Email, booking.Worker.FullName, workerSubject, workerBody)
	}
}

func composeBookingEmail(b *models.Booking, event string) (custSubj, custBody, workSubj, workBody string) {
	ref := b.Reference
	switch event {
	case "created":
		custSubj = "Your Booking Request " + ref
		custBody = fmt.Sprintf("<h1>Booking Received</h1><p>Your booking %s for %s on %s (%s) has been created.</p>", ref, b.Service.Name, b.Date.Format("2006-01-02"), b.TimeSlot)
		workSubj = "New Booking Request " + ref
		workBody = fmt.Sprintf("<h1>New Booking</h1><p>A customer has requested %s on %s (%s). Please accept or reject it.</p>", b.Service.Name, b.Date.Format("2006-01-02"), b.TimeSlot)
	case "payment_confirmed":
		custSubj = "Payment Received for " + ref
		custBody = "<h1>Payment Confirmed</h1><p>Your payment was successful. We will notify you once a worker confirms the booking.</p>"
		workSubj = "Booking " + ref + " Paid"
		workBody = "<h1>Booking Paid</h1><p>The customer has completed payment for this booking.</p>"
	case "payment_failed":
		custSubj = "Payment Failed for " + ref
		custBody = "<h1>Payment Failed</h1><p>Your payment did not go through. Your booking is still held; please retry the payment.</p>"
	case "accepted":
		custSubj = "Booking " + ref + " Confirmed"
		custBody = "<h1>Booking Confirmed</h1><p>A worker has accepted your booking. See you at the scheduled slot.</p>"
	case "rejected":
		custSubj = "Booking " + ref + " Could Not Be Fulfilled"
		custBody = "<h1>Booking Rejected</h1><p>Unfortunately your booking could not be fulfilled. Any completed payment has been refunded.</p>"
	case "completed":
		custSubj = "Booking " + ref + " Completed"
		custBody = "<h1>Job Done</h1><p>Your booking has been marked complete. Thank you for using our platform.</p>"
		workSubj = "Booking " + ref + " Completed"
		workBody = "<h1>Job Done</h1><p>The booking has been marked complete.</p>"
	case "cancelled":
		custSubj = "Booking " + ref + " Cancelled"
		custBody = "<h1>Booking Cancelled</h1><p>Your booking has been cancelled. Any completed payment has been refunded.</p>"
		workSubj = "Booking " + ref + " Cancelled"
		workBody = "<h1>Booking Cancelled</h1><p>The customer has cancelled this booking.</p>"
	case "refunded":
		custSubj = "Refund Processed for " + ref
		custBody = "<h1>Refund Processed</h1><p>Your payment has been refunded. Depending on your bank it may take a few days to appear.</p>"
	}
	return
}

func (m *Mailer) send(toEmail, toName, subject, htmlContent string) {
	if !m.enabled {
		return
	}
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		m.log.Warnf("invalid recipient email %q, skipping", toEmail)
		return
	}
	if toName == "" {
		toName = toEmail[:strings.Index(toEmail, "@")]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": m.cfg.SenderName, "email": m.cfg.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		m.log.WithError(err).Error("failed to marshal email payload")
		return
	}

	req, err := http.NewRequest("POST", brevoURL, bytes.NewBuffer(body))
	if err != nil {
		m.log.WithError(err).Error("failed to build email request")
		return
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", m.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.log.WithError(err).Warnf("failed to send email to %s", toEmail)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		m.log.Warnf("Brevo API error for %s: status %d, body: %s", toEmail, resp.StatusCode, string(respBody))
		return
	}
	m.log.Debugf("email sent to %s: %s", toEmail, subject)
}
