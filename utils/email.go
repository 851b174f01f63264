package utils

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go-giftshop/models"

	"github.com/keighl/postmark"
	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const sendTimeout = 30 * time.Second

// Message is a single outgoing email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers one message through a provider
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// PostmarkMailer sends through the Postmark API
type PostmarkMailer struct {
	client *postmark.Client
	from   string
}

func NewPostmarkMailer(apiToken, from string) *PostmarkMailer {
	return &PostmarkMailer{
		client: postmark.NewClient(apiToken, ""),
		from:   from,
	}
}

func (m *PostmarkMailer) Send(_ context.Context, msg Message) error {
	_, err := m.client.SendEmail(postmark.Email{
		From:     m.from,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	return nil
}

// SendgridMailer sends through the SendGrid v3 API
type SendgridMailer struct {
	client *sendgrid.Client
	from   string
}

func NewSendgridMailer(apiKey, from string) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(
		mail.NewEmail("", m.from),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only logs, for development
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	zerolog.Ctx(ctx).Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email not sent, log provider")
	return nil
}

// EmailService composes the shop's transactional emails and sends them in the
// background so requests never wait on the provider.
type EmailService struct {
	mailer     Mailer
	adminEmail string
	currency   currency.Unit
	wg         sync.WaitGroup
}

// NewEmailService initializes and returns a new EmailService instance
func NewEmailService(mailer Mailer, adminEmail string, unit currency.Unit) *EmailService {
	return &EmailService{
		mailer:     mailer,
		adminEmail: adminEmail,
		currency:   unit,
	}
}

// Go runs send detached from the request: it keeps the request's values (the
// logger) but not its cancellation. Failures are logged.
func (es *EmailService) Go(ctx context.Context, name string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)

	es.wg.Add(1)
	go func() {
		defer es.wg.Done()
		defer cancel()

		if err := send(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("email", name).Msg("failed to send email")
		}
	}()
}

// Wait blocks until every email started with Go has finished.
func (es *EmailService) Wait() {
	es.wg.Wait()
}

// SendOrderConfirmationEmail sends the order summary to the customer
func (es *EmailService) SendOrderConfirmationEmail(ctx context.Context, order models.Order) error {
	if order.Customer.Email == "" {
		return errors.New("order has no customer email")
	}

	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(item.Name), item.Quantity, es.money(item.LineTotal))
	}

	htmlContent := fmt.Sprintf(
		"<strong>Hola %s,</strong><br><br>Recibimos tu pedido <strong>%s</strong>.<br><br>"+
			"<table>%s</table><br>Subtotal: %s<br>Descuento: %s<br>Total: <strong>%s</strong><br><br>"+
			"Entrega para %s en %s.<br><br>¡Gracias por tu compra!",
		html.EscapeString(order.Customer.Name),
		order.OrderNumber,
		rows.String(),
		es.money(order.Subtotal),
		es.money(order.Discount),
		es.money(order.Total),
		html.EscapeString(order.Delivery.RecipientName),
		html.EscapeString(order.Delivery.Address),
	)
	text := fmt.Sprintf("Pedido %s recibido. Total: %s", order.OrderNumber, es.money(order.Total))

	return es.mailer.Send(ctx, Message{
		To:      order.Customer.Email,
		Subject: fmt.Sprintf("Confirmación de pedido %s", order.OrderNumber),
		HTML:    htmlContent,
		Text:    text,
	})
}

// SendNewOrderAlert notifies the shop of a new order. It is a no-op when no
// admin address is configured.
func (es *EmailService) SendNewOrderAlert(ctx context.Context, order models.Order) error {
	if es.adminEmail == "" {
		return nil
	}

	text := fmt.Sprintf("Nuevo pedido %s de %s (%s). Total: %s",
		order.OrderNumber, order.Customer.Name, order.Customer.Phone, es.money(order.Total))

	return es.mailer.Send(ctx, Message{
		To:      es.adminEmail,
		Subject: fmt.Sprintf("Nuevo pedido %s", order.OrderNumber),
		HTML:    html.EscapeString(text),
		Text:    text,
	})
}

// SendWelcomeEmail greets a new newsletter subscriber
func (es *EmailService) SendWelcomeEmail(ctx context.Context, subscriber models.EmailSubscriber) error {
	name := subscriber.Name
	if name == "" {
		name = "hola"
	}

	return es.mailer.Send(ctx, Message{
		To:      subscriber.Email,
		Subject: "Bienvenido a nuestro boletín",
		HTML:    fmt.Sprintf("<strong>¡%s!</strong><br><br>Gracias por suscribirte. Te avisaremos de promociones y temporadas especiales.", html.EscapeString(name)),
		Text:    fmt.Sprintf("¡%s! Gracias por suscribirte.", name),
	})
}

func (es *EmailService) money(amount decimal.Decimal) string {
	return FormatMoney(es.currency, amount)
}

// FormatMoney renders an amount with two decimals and its ISO code.
func FormatMoney(unit currency.Unit, amount decimal.Decimal) string {
	return fmt.Sprintf("$%s %s", amount.StringFixed(2), unit)
}
