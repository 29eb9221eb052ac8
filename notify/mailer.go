package notify

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"

	"Gin_postgres_redis_lending/events"
	"Gin_postgres_redis_lending/models"
)

type SMTPConfig struct {
	Host     string // SMTP_HOST, e.g. smtp.gmail.com
	Port     string // SMTP_PORT, default 587
	Username string
	Password string
	From     string // falls back to Username
	AppName  string
}

func (c SMTPConfig) enabled() bool {
	return c.Host != "" && (c.Username != "" || c.From != "")
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML mail over SMTP. Without a host it only logs what it would send.
type Mailer struct {
	conf SMTPConfig
	send sendFunc
	log  *slog.Logger
}

func NewMailer(conf SMTPConfig, log *slog.Logger) *Mailer {
	if conf.Port == "" {
		conf.Port = "587"
	}
	if conf.AppName == "" {
		conf.AppName = "Equipment Lending"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{conf: conf, send: smtp.SendMail, log: log}
}

func (m *Mailer) Send(to, subject, html string) error {
	if !m.conf.enabled() {
		m.log.Info("mail not sent, smtp not configured", "to", to, "subject", subject)
		return nil
	}
	from := m.conf.From
	if from == "" {
		from = m.conf.Username
	}
	msg := buildMIME(m.conf.AppName, from, to, subject, html)
	auth := smtp.PlainAuth("", m.conf.Username, m.conf.Password, m.conf.Host)
	return m.send(m.conf.Host+":"+m.conf.Port, auth, from, []string{to}, []byte(msg))
}

func buildMIME(fromName, fromAddr, to, subject, html string) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + html
}

// Directory resolves the people and items named in an event.
type Directory interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindItemByID(ctx context.Context, id string) (*models.Item, error)
}

// BorrowNotifier mails borrowers when their request is decided or their loan goes late.
type BorrowNotifier struct {
	Mail *Mailer
	Dir  Directory
}

var borrowMail = template.Must(template.New("borrow").Parse(
	`<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>Hello {{.Username}},</p>
  <p>{{.Before}}<b>{{.Item}}</b>{{.After}}</p>
</div>`))

type borrowMailData struct {
	Username, Item, Before, After string
}

func (n *BorrowNotifier) Handle(ctx context.Context, ev events.BorrowEvent) error {
	var subject string
	data := borrowMailData{}
	switch models.LogAction(ev.Action) {
	case models.ActionApproved:
		subject = "Borrow request approved"
		data.Before, data.After = "Your request for ", " was approved. Pick it up from the equipment desk."
	case models.ActionRejected:
		subject = "Borrow request rejected"
		data.Before, data.After = "Your request for ", " was rejected. Check the app for the reason."
	case models.ActionMarkedLate:
		subject = "Item overdue"
		data.After = " is past its due date. Please return it as soon as possible."
	default:
		return nil
	}

	u, err := n.Dir.FindUserByID(ctx, ev.BorrowerID)
	if err != nil {
		return fmt.Errorf("notify borrower: %w", err)
	}
	if u.Email == "" {
		return nil
	}
	data.Username = u.Username
	data.Item = "your item"
	if it, err := n.Dir.FindItemByID(ctx, ev.ItemID); err == nil {
		data.Item = it.Name
	}

	var body strings.Builder
	if err := borrowMail.Execute(&body, data); err != nil {
		return fmt.Errorf("render borrow mail: %w", err)
	}
	return n.Mail.Send(u.Email, fmt.Sprintf("%s: %s", n.Mail.conf.AppName, subject), body.String())
}
