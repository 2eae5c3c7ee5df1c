// Package email sends transactional mail. Sends are fire-and-forget: a
// delivery failure is logged and never rolls back the order that triggered it.
package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"os"
	"text/template"

	"storefront-service/internal/orders"
)

// Mailer is injected into the webhook handler so the pure order flow never
// touches SMTP directly and tests can capture sends.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay configured via env.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	disabled bool
}

func NewSMTPMailer() (*SMTPMailer, error) {
	m := SMTPMailer{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("EMAIL_FROM"),
		disabled: os.Getenv("DISABLE_EMAIL") == "true",
	}
	if m.disabled {
		return &m, nil
	}
	if m.host == "" || m.port == "" {
		return nil, fmt.Errorf("SMTP_HOST and SMTP_PORT must be set")
	}
	if m.from == "" {
		m.from = "no-reply@example.com"
	}
	return &m, nil
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.disabled {
		return nil
	}
	message := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

var orderConfirmationTmpl = template.Must(template.New("order-confirmation").
	Funcs(template.FuncMap{
		"dollars": func(cents int64) string {
			return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
		},
	}).
	Parse(`Hi {{.Order.CustomerName}},

Thank you for your order! Your order number is {{.Order.OrderNumber}}.

{{range .Order.Items}}  {{.Quantity}} x {{if .SKU}}{{.SKU}}{{else}}{{.VariantID}}{{end}}{{if .CustomizationValue}} ({{.CustomizationValue}}){{end}} - {{dollars .TotalPriceCents}}
{{end}}
Subtotal: {{dollars .Order.SubtotalCents}}
Tax:      {{dollars .Order.TaxCents}}
Total:    {{dollars .Order.TotalCents}}

We are processing it now and will let you know once it ships.
`))

// RenderOrderConfirmation renders the plain-text confirmation body.
func RenderOrderConfirmation(order orders.Order) (string, error) {
	var buf bytes.Buffer
	if err := orderConfirmationTmpl.Execute(&buf, struct{ Order orders.Order }{order}); err != nil {
		return "", fmt.Errorf("failed to render order confirmation: %w", err)
	}
	return buf.String(), nil
}
