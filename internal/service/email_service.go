package service

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/voltdrop/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailMessage 一封待发送邮件，HTML 为空时只发纯文本
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailService SMTP 发信
type EmailService struct {
	cfg  *config.EmailConfig
	send func(cfg *config.EmailConfig, msg *gomail.Message) error
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg, send: dialAndSend}
}

// Ready 未启用或缺少 host/port/from 时返回对应错误
func (s *EmailService) Ready() error {
	switch {
	case s == nil || s.cfg == nil || !s.cfg.Enabled:
		return ErrEmailServiceDisabled
	case s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "":
		return ErrEmailServiceNotConfigured
	}
	return nil
}

// Send 发送邮件；收件人被拒时返回 ErrEmailRecipientRejected，调用方不应重试
func (s *EmailService) Send(message EmailMessage) error {
	if err := s.Ready(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(strings.TrimSpace(message.To))
	if err != nil {
		return ErrInvalidEmail
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	msg.SetAddressHeader("To", to.Address, to.Name)
	msg.SetHeader("Subject", message.Subject)
	msg.SetBody("text/plain", message.Text)
	if message.HTML != "" {
		msg.AddAlternative("text/html", message.HTML)
	}
	if err := s.send(s.cfg, msg); err != nil {
		if recipientRejected(err) {
			return fmt.Errorf("%w: %v", ErrEmailRecipientRejected, err)
		}
		return err
	}
	return nil
}

func dialAndSend(cfg *config.EmailConfig, msg *gomail.Message) error {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.UseSSL
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return dialer.DialAndSend(msg)
}

// 550/551/553 是 RCPT 阶段的永久拒收
var rejectedRecipientCodes = map[int]bool{550: true, 551: true, 553: true}

var rejectedRecipientHints = []string{
	"no such recipient",
	"no such user",
	"recipient address rejected",
	"user unknown",
	"mailbox unavailable",
}

func recipientRejected(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && rejectedRecipientCodes[protoErr.Code] {
		return true
	}
	text := strings.ToLower(err.Error())
	for _, hint := range rejectedRecipientHints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}
