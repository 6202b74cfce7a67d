// Package email notifies operators by SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/domain/review"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
	"github.com/orris-inc/payrecon/internal/shared/services/sanitize"
)

var ErrNoRecipients = errors.New("no ops recipients configured")

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Recipients  []string
	// BaseURL is the admin console used in review links.
	BaseURL string
}

func SMTPConfigFrom(cfg sharedConfig.EmailConfig, baseURL string) SMTPConfig {
	return SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		Recipients:  cfg.OpsRecipients,
		BaseURL:     baseURL,
	}
}

// ReviewNotifier mails the ops list when a manual review opens.
type ReviewNotifier struct {
	config    SMTPConfig
	sender    mailSender
	sanitizer sanitize.Sanitizer
}

var _ usecases.ReviewNotifier = (*ReviewNotifier)(nil)

func NewReviewNotifier(config SMTPConfig) *ReviewNotifier {
	return newReviewNotifier(config, gomail.NewDialer(config.Host, config.Port, config.Username, config.Password))
}

func newReviewNotifier(config SMTPConfig, sender mailSender) *ReviewNotifier {
	return &ReviewNotifier{
		config:    config,
		sender:    sender,
		sanitizer: sanitize.NewSanitizer(),
	}
}

func (n *ReviewNotifier) NotifyReviewOpened(ctx context.Context, r *review.ManualReview) error {
	if len(n.config.Recipients) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/admin/manual-reviews/%s", strings.TrimRight(n.config.BaseURL, "/"), r.SID())
	summary := n.sanitizer.Text(r.Summary())
	subject := fmt.Sprintf("[payments] %s review for order %d", r.Type(), r.OrderID())

	plainBody := fmt.Sprintf(`A manual review was opened.

Type:     %s
Order:    %d
Payment:  %d
Expected: %d %s
Received: %d %s
Summary:  %s

Review: %s
`, r.Type(), r.OrderID(), r.PaymentID(),
		r.ExpectedAmount(), r.Currency(), r.ReceivedAmount(), r.Currency(),
		summary, link)

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Manual review opened</h2>
			<p><b>%s</b> on order %d (payment %d)</p>
			<p>Expected %d %s, received %d %s</p>
			<p>%s</p>
			<p><a href="%s">Open review</a></p>
		</body>
		</html>
	`, r.Type(), r.OrderID(), r.PaymentID(),
		r.ExpectedAmount(), r.Currency(), r.ReceivedAmount(), r.Currency(),
		summary, link)

	m := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	m.SetAddressHeader("From", n.config.FromAddress, n.config.FromName)
	m.SetHeader("To", n.config.Recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send review email: %w", err)
	}
	return nil
}
