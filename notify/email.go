package notify

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"rental-price-tracker/config"
	"rental-price-tracker/models"
	"rental-price-tracker/utils"
)

// EmailNotifier renders run results as a multipart HTML + plain-text
// message and delivers it over authenticated SMTP
type EmailNotifier struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewEmailNotifier creates a new EmailNotifier
func NewEmailNotifier(cfg *config.Config, logger *utils.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

// Enabled reports whether SMTP credentials are configured
func (n *EmailNotifier) Enabled() bool {
	return n.cfg.SenderEmail != "" && n.cfg.RecipientEmail != ""
}

// SendPriceAlert sends the per-booking run results to the configured
// recipient
func (n *EmailNotifier) SendPriceAlert(reports []*models.BookingReport) error {
	if len(reports) == 0 {
		return nil
	}

	msg, err := n.buildMessage(reports)
	if err != nil {
		return fmt.Errorf("failed to build alert message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPServer, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.SenderEmail, n.cfg.SenderPassword, n.cfg.SMTPServer)

	if err := smtp.SendMail(addr, auth, n.cfg.SenderEmail, []string{n.cfg.RecipientEmail}, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	n.logger.Info("Alert email sent to %s (%d bookings)", n.cfg.RecipientEmail, len(reports))
	return nil
}

// buildMessage assembles a multipart/alternative message: plain text
// first, HTML last so capable clients prefer it
func (n *EmailNotifier) buildMessage(reports []*models.BookingReport) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.SenderEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", n.cfg.RecipientEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject(reports))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(formatTextBody(reports))); err != nil {
		return nil, err
	}

	htmlBody, err := formatHTMLBody(reports)
	if err != nil {
		return nil, err
	}
	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(htmlBody)); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func subject(reports []*models.BookingReport) string {
	locations := make([]string, 0, len(reports))
	alerts := 0
	for _, r := range reports {
		locations = append(locations, r.Booking.Location)
		if r.Alertworthy() {
			alerts++
		}
	}

	prefix := "Costco Car Rental Update"
	if alerts > 0 {
		prefix = fmt.Sprintf("Costco Car Rental ALERT (%d)", alerts)
	}
	return fmt.Sprintf("%s - %s - %s", prefix, strings.Join(locations, ", "), time.Now().Format("2006-01-02"))
}
