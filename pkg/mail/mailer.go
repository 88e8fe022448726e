package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/config"
	"github.com/librastore/librashop-backend/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("sendgrid api key is required")
	errFromRequired   = errors.New("sendgrid from address is required")
)

// OrderConfirmation carries the details rendered into the confirmation email.
type OrderConfirmation struct {
	To            string
	CustomerName  string
	OrderID       string
	TransactionID string
	Total         decimal.Decimal
	Lines         []OrderConfirmationLine
}

// OrderConfirmationLine is one purchased item in the email body.
type OrderConfirmationLine struct {
	Name      string
	Quantity  int
	LineTotal decimal.Decimal
}

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	disabled bool
}

// NewMailer builds a SendGrid mailer. An empty API key disables sending, which
// keeps local development working without credentials.
func NewMailer(ctx context.Context, cfg config.SendgridConfig, logg *logger.Logger) (*Mailer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		if logg != nil {
			logg.Warn(ctx, "sendgrid api key not set, outbound email disabled")
		}
		return &Mailer{disabled: true}, nil
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, errFromRequired
	}
	return &Mailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(cfg.FromName, from),
	}, nil
}

// SendOrderConfirmation sends the order confirmation email. Failures are
// returned so callers can count them, but they never affect order state.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if m == nil || m.disabled {
		return nil
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient address is required")
	}

	subject := fmt.Sprintf("Your order %s is confirmed", msg.OrderID)
	to := sgmail.NewEmail(msg.CustomerName, msg.To)
	body := buildConfirmationBody(msg)
	email := sgmail.NewSingleEmail(m.from, subject, to, body, "")

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}

func buildConfirmationBody(msg OrderConfirmation) string {
	var b strings.Builder
	name := msg.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your purchase. Your order %s has been confirmed.\n\n", name, msg.OrderID)
	for _, line := range msg.Lines {
		fmt.Fprintf(&b, "  %dx %s - %s\n", line.Quantity, line.Name, line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", msg.Total.StringFixed(2))
	if msg.TransactionID != "" {
		fmt.Fprintf(&b, "Payment reference: %s\n", msg.TransactionID)
	}
	b.WriteString("\nWe will let you know as soon as your order ships.\n")
	return b.String()
}
