package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmlTemplate "html/template"
	"io/fs"
	"os"
	textTemplate "text/template"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

//go:embed templates/*.html templates/*.txt
var embeddedTemplates embed.FS

var ErrTemplateNotFound = errors.New("mail template not found")

// Sender delivers fully built messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Service struct {
	config        *config.MailConfig
	client        Sender
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	logger.Info("initializing mail service",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("encryption", cfg.Encryption),
		zap.String("from_address", cfg.FromAddress))

	client, err := newClient(cfg)
	if err != nil {
		logger.Error("failed to create mail client", zap.Error(err), zap.String("host", cfg.Host))
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithClient(cfg, logger, client)
}

// NewServiceWithClient builds the service around an existing sender.
func NewServiceWithClient(cfg *config.MailConfig, logger *logging.Service, client Sender) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, errors.New("MAIL_FROM_ADDRESS is required")
	}

	s := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}
	if err := s.loadTemplates(); err != nil {
		logger.Error("failed to load mail templates", zap.Error(err))
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}
	return s, nil
}

func newClient(cfg *config.MailConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	switch cfg.Encryption {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	return mail.NewClient(cfg.Host, opts...)
}

// loadTemplates parses the built-in templates, or the configured directory
// when one is set.
func (s *Service) loadTemplates() error {
	var source fs.FS
	var err error
	if s.config.TemplatesDir != "" {
		source = os.DirFS(s.config.TemplatesDir)
	} else {
		source, err = fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return err
		}
	}

	if matches, _ := fs.Glob(source, "*.html"); len(matches) > 0 {
		if s.htmlTemplates, err = htmlTemplate.ParseFS(source, "*.html"); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}
	if matches, _ := fs.Glob(source, "*.txt"); len(matches) > 0 {
		if s.textTemplates, err = textTemplate.ParseFS(source, "*.txt"); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	s.logger.Debug("mail templates loaded", zap.Bool("custom_dir", s.config.TemplatesDir != ""))
	return nil
}

func (s *Service) newMessage(to []string, subject string) (*mail.Msg, error) {
	message := mail.NewMsg()
	if err := message.FromFormat(s.config.FromName, s.config.FromAddress); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(to...); err != nil {
		return nil, fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(subject)
	message.SetDate()
	return message, nil
}

func (s *Service) send(ctx context.Context, message *mail.Msg, to []string) error {
	start := time.Now()
	if err := s.client.DialAndSendWithContext(ctx, message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.Strings("recipients", to),
			zap.Duration("attempt_duration", time.Since(start)))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		zap.Strings("recipients", to),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

// SendTemplate renders templateName (.html and/or .txt) with data and sends it.
// When both variants exist the text one is attached as an alternative.
func (s *Service) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	message, err := s.newMessage(to, subject)
	if err != nil {
		return err
	}
	if err := s.render(templateName, data, message); err != nil {
		s.logger.Error("failed to render template", zap.Error(err), zap.String("template", templateName))
		return err
	}
	return s.send(ctx, message, to)
}

func (s *Service) SendPlain(ctx context.Context, to []string, subject, body string) error {
	message, err := s.newMessage(to, subject)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextPlain, body)
	return s.send(ctx, message, to)
}

func (s *Service) render(templateName string, data map[string]any, message *mail.Msg) error {
	var html, text string
	var hasHTML, hasText bool

	if s.htmlTemplates != nil {
		if tmpl := s.htmlTemplates.Lookup(templateName + ".html"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute HTML template: %w", err)
			}
			html, hasHTML = buf.String(), true
		}
	}
	if s.textTemplates != nil {
		if tmpl := s.textTemplates.Lookup(templateName + ".txt"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute text template: %w", err)
			}
			text, hasText = buf.String(), true
		}
	}

	switch {
	case hasHTML && hasText:
		message.SetBodyString(mail.TypeTextPlain, text)
		message.AddAlternativeString(mail.TypeTextHTML, html)
	case hasHTML:
		message.SetBodyString(mail.TypeTextHTML, html)
	case hasText:
		message.SetBodyString(mail.TypeTextPlain, text)
	default:
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, templateName)
	}
	return nil
}
