package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"ms-orders/internal/config"
	"ms-orders/internal/logger"
	"ms-orders/internal/models"

	qrcode "github.com/skip2/go-qrcode"
)

// EmailSender sends order confirmation mail over SMTP. The body embeds a QR
// code deeplinking the order tracking page.
type EmailSender struct {
	cfg    config.EmailConfig
	logger *logger.Logger
}

func NewEmailSender(cfg config.EmailConfig, log *logger.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, logger: log}
}

func (s *EmailSender) SendOrderConfirmation(ctx context.Context, email string, confirmation models.OrderConfirmation) error {
	trackingURL := fmt.Sprintf("%s/%d", s.cfg.TrackingBase, confirmation.OrderID)

	qrPNG, err := qrcode.Encode(trackingURL, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate tracking QR: %w", err)
	}

	body := s.buildBody(email, confirmation, trackingURL, qrPNG)

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.logger.Info("EMAIL", fmt.Sprintf("order confirmation sent for order %d to %s", confirmation.OrderID, email))
	return nil
}

func (s *EmailSender) buildBody(email string, c models.OrderConfirmation, trackingURL string, qrPNG []byte) string {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	fmt.Fprintf(&b, "Subject: Order #%d confirmed\r\n", c.OrderID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "<h2>Thanks for your order #%d</h2>", c.OrderID)
	b.WriteString("<table border=\"0\" cellpadding=\"4\">")
	for _, item := range c.Items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>x%d</td><td>%.2f</td></tr>",
			item.ProductName, item.Quantity, item.Price)
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p><b>Total: %.2f %s</b></p>", float64(c.TotalPaise)/100, c.Currency)
	fmt.Fprintf(&b, "<p>Track your order: <a href=\"%s\">%s</a></p>", trackingURL, trackingURL)
	fmt.Fprintf(&b, "<img src=\"data:image/png;base64,%s\" alt=\"tracking QR\"/>",
		base64.StdEncoding.EncodeToString(qrPNG))

	return b.String()
}
