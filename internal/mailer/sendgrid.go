package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/bumikarya/contact-api/internal/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const subject = "New Contact Form Submission from ABI Website"

// bodyTemplate mirrors the notification layout sent to the sales inbox.
// Field values are escaped again on interpolation even though the record is
// already sanitized.
var bodyTemplate = template.Must(template.New("notification").Parse(`
<html>
<head>
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #1C3830; color: white; padding: 20px; text-align: center; }
		.content { background-color: #f9f9f9; padding: 20px; border: 1px solid #ddd; }
		.field { margin-bottom: 15px; }
		.label { font-weight: bold; color: #1C3830; }
		.value { margin-top: 5px; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h2>New Contact Form Submission</h2>
		</div>
		<div class="content">
			<div class="field">
				<div class="label">Name:</div>
				<div class="value">{{.Name}}</div>
			</div>
			<div class="field">
				<div class="label">Email:</div>
				<div class="value">{{.Email}}</div>
			</div>
			<div class="field">
				<div class="label">Phone:</div>
				<div class="value">{{.Phone}}</div>
			</div>
			<div class="field">
				<div class="label">Message:</div>
				<div class="value">{{.Message}}</div>
			</div>
			<div class="field">
				<div class="label">Submitted:</div>
				<div class="value">{{.SubmittedAt}}</div>
			</div>
			<div class="field">
				<div class="label">IP Address:</div>
				<div class="value">{{.ClientIP}}</div>
			</div>
		</div>
	</div>
</body>
</html>
`))

type SendGridNotifier struct {
	client *sendgrid.Client
	cfg    *config.Config
	log    *logrus.Entry
}

func NewSendGridNotifier(logger *logrus.Logger, cfg *config.Config) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		cfg:    cfg,
		log:    logger.WithField("component", "mailer"),
	}
}

func (n *SendGridNotifier) Send(ctx context.Context, sub *Submission) error {
	htmlBody, err := RenderBody(sub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	from := mail.NewEmail(n.cfg.FromName, n.cfg.FromEmail)
	to := mail.NewEmail("", n.cfg.RecipientEmail)
	plain := fmt.Sprintf("New contact form submission from %s %s <%s>", sub.FirstName, sub.LastName, sub.Email)

	message := mail.NewSingleEmail(from, subject, to, plain, htmlBody)
	message.SetReplyTo(mail.NewEmail("", sub.Email))

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		n.log.WithError(err).Error("Notification send failed")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	if resp.StatusCode >= 400 {
		n.log.WithField("status_code", resp.StatusCode).Error("Notification rejected by provider")
		return fmt.Errorf("%w: provider returned status %d", ErrDispatchFailed, resp.StatusCode)
	}

	n.log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"reply_to":    sub.Email,
	}).Info("Notification sent")
	return nil
}

// RenderBody produces the HTML body for a submission. Exported so the layout
// can be verified without a live SendGrid client.
func RenderBody(sub *Submission) (string, error) {
	data := struct {
		Name        string
		Email       string
		Phone       string
		Message     template.HTML
		SubmittedAt string
		ClientIP    string
	}{
		Name:        sub.FirstName + " " + sub.LastName,
		Email:       sub.Email,
		Phone:       sub.Phone,
		Message:     nl2br(sub.Message),
		SubmittedAt: sub.SubmittedAt.Format("2006-01-02 15:04:05"),
		ClientIP:    sub.ClientIP,
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template render failed: %w", err)
	}
	return buf.String(), nil
}

// nl2br escapes the message and converts newlines to <br> tags. The explicit
// escape keeps the value safe even though it bypasses template auto-escaping
// for the line-break markup.
func nl2br(message string) template.HTML {
	escaped := html.EscapeString(message)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
