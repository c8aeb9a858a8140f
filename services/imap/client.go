package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/openstay/reservstack/interfaces"
	er "github.com/openstay/reservstack/internal/errors"
	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/tracing"
)

const (
	dialTimeout    = 30 * time.Second
	commandTimeout = 30 * time.Second
	logoutTimeout  = 5 * time.Second
	recencyWindow  = 24 * time.Hour
)

// MailboxClient is a single-use IMAP session for one tenant mailbox.
// Connect, use, Disconnect; instances are not safe for concurrent use.
type MailboxClient struct {
	settings *models.TenantMailSettings
	log      logger.Logger
	client   *client.Client
}

type clientFactory struct {
	log logger.Logger
}

func NewClientFactory(log logger.Logger) interfaces.MailboxClientFactory {
	return &clientFactory{log: log}
}

func (f *clientFactory) NewClient(settings *models.TenantMailSettings) interfaces.MailboxClient {
	return &MailboxClient{
		settings: settings,
		log:      f.log,
	}
}

func (m *MailboxClient) Connect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxClient.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", m.settings.ImapHost)
	span.SetTag("port", m.settings.EffectivePort())
	span.SetTag("tls", m.settings.ImapTLS)

	serverAddr := fmt.Sprintf("%s:%d", m.settings.ImapHost, m.settings.EffectivePort())

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if m.settings.ImapTLS {
		tlsConfig := &tls.Config{
			ServerName: m.settings.ImapHost,
		}

		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()

		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to get capabilities: %w", err)
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	c.Timeout = commandTimeout

	err = c.Login(m.settings.ImapUsername, m.settings.ImapPassword)
	if err != nil {
		c.Logout()

		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to login as %s: %w", m.settings.ImapUsername, err)
	}

	c.Timeout = 0 // No timeout for normal operations

	m.log.Infof("[%s] Connected and logged in to %s", m.settings.Tenant, serverAddr)
	m.client = c

	return nil
}

func (m *MailboxClient) Disconnect() error {
	span := opentracing.StartSpan("MailboxClient.Disconnect")
	defer span.Finish()
	span.SetTag("tenant", m.settings.Tenant)

	if m.client == nil {
		return nil
	}

	c := m.client
	m.client = nil

	logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()

	c.Timeout = logoutTimeout

	done := make(chan error, 1)

	go func() {
		done <- c.Logout()
		close(done)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.log.Warnf("[%s] Error during logout: %v", m.settings.Tenant, err)
			tracing.TraceErr(span, err)
		}
	case <-logoutCtx.Done():
		m.log.Warnf("[%s] Logout timed out", m.settings.Tenant)
		span.SetTag("timeout", true)
	}

	return nil
}

// selectFolder opens the configured source folder in read-write mode.
func (m *MailboxClient) selectFolder(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "MailboxClient.selectFolder")
	defer span.Finish()
	span.SetTag("folder.name", m.settings.EffectiveFolder())

	if m.client == nil {
		return er.ErrNotConnected
	}

	m.client.Timeout = commandTimeout
	mbox, err := m.client.Select(m.settings.EffectiveFolder(), false)
	m.client.Timeout = 0 // Reset timeout

	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("error selecting folder %s: %w", m.settings.EffectiveFolder(), err)
	}

	span.SetTag("messages.total", mbox.Messages)
	span.SetTag("messages.unseen", mbox.Unseen)

	return nil
}
