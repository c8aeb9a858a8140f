package imap

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/models"
)

func buildTestIMAPServer(t *testing.T) (string, backend.User, *memory.Mailbox) {
	t.Helper()

	be := memory.New()
	user, err := be.Login(nil, "username", "password")
	require.NoError(t, err)

	mb, err := user.GetMailbox("INBOX")
	require.NoError(t, err)

	mailbox := mb.(*memory.Mailbox)
	mailbox.Messages = nil

	s := server.New(be)
	s.AllowInsecureAuth = true
	t.Cleanup(func() { _ = s.Close() })

	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)

	go func() { _ = s.Serve(l) }()

	return l.Addr().String(), user, mailbox
}

func makeRawMessage(t *testing.T, messageID string, subject string, body string) []byte {
	t.Helper()

	hdr := message.Header{}
	hdr.Add("From", "noreply@lobbybookings.com")
	hdr.Add("To", "reservas@lafamiliahostel.com")
	hdr.Add("Subject", subject)
	hdr.Add("Date", time.Now().UTC().Format(time.RFC1123Z))
	hdr.Add("Content-Type", "text/plain")
	hdr.Add("Message-ID", messageID)

	msg, err := message.New(hdr, strings.NewReader(body))
	require.NoError(t, err)

	bb := new(bytes.Buffer)
	require.NoError(t, msg.WriteTo(bb))

	return bb.Bytes()
}

func seedMessage(mailbox *memory.Mailbox, uid uint32, date time.Time, raw []byte) {
	mailbox.Messages = append(mailbox.Messages, &memory.Message{
		Uid:   uid,
		Date:  date,
		Flags: []string{},
		Size:  uint32(len(raw)),
		Body:  raw,
	})
}

func testSettings(t *testing.T, addr string) *models.TenantMailSettings {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return &models.TenantMailSettings{
		Tenant:       "lafamilia",
		Enabled:      true,
		ImapHost:     host,
		ImapPort:     port,
		ImapTLS:      false,
		ImapUsername: "username",
		ImapPassword: "password",
	}
}

func connectedClient(t *testing.T, addr string) *MailboxClient {
	t.Helper()

	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "debug"})
	appLogger.InitLogger()

	factory := NewClientFactory(appLogger)
	c := factory.NewClient(testSettings(t, addr)).(*MailboxClient)

	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Disconnect() })

	return c
}

func TestFetchMessages(t *testing.T) {
	addr, _, mailbox := buildTestIMAPServer(t)
	seedMessage(mailbox, 6, time.Now(), makeRawMessage(t, "<res-1@lobbybookings.com>", "nueva reserva", "Reserva: 6057955462"))

	c := connectedClient(t, addr)

	messages, err := c.FetchMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.Equal(t, "<res-1@lobbybookings.com>", messages[0].MessageID)
	assert.Equal(t, "nueva reserva", messages[0].Subject)
	assert.Contains(t, messages[0].From, "noreply@lobbybookings.com")
	assert.Contains(t, messages[0].Text, "Reserva: 6057955462")
}

func TestFetchMessagesSkipsOldMail(t *testing.T) {
	addr, _, mailbox := buildTestIMAPServer(t)
	seedMessage(mailbox, 6, time.Now().Add(-48*time.Hour), makeRawMessage(t, "<old@lobbybookings.com>", "nueva reserva", "Reserva: 111"))
	seedMessage(mailbox, 7, time.Now(), makeRawMessage(t, "<new@lobbybookings.com>", "nueva reserva", "Reserva: 222"))

	c := connectedClient(t, addr)

	messages, err := c.FetchMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "<new@lobbybookings.com>", messages[0].MessageID)
}

func TestFetchMessagesSubjectFilter(t *testing.T) {
	addr, _, mailbox := buildTestIMAPServer(t)
	seedMessage(mailbox, 6, time.Now(), makeRawMessage(t, "<res@lobbybookings.com>", "nueva reserva recibida", "Reserva: 111"))
	seedMessage(mailbox, 7, time.Now(), makeRawMessage(t, "<ad@spam.example>", "weekly newsletter", "Sale!"))

	c := connectedClient(t, addr)
	c.settings.SubjectFilters = []string{"nueva reserva", "new reservation"}

	messages, err := c.FetchMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "<res@lobbybookings.com>", messages[0].MessageID)
}

func TestFetchMessagesEmptyMailbox(t *testing.T) {
	addr, _, _ := buildTestIMAPServer(t)

	c := connectedClient(t, addr)

	messages, err := c.FetchMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMarkAsRead(t *testing.T) {
	addr, _, mailbox := buildTestIMAPServer(t)
	seedMessage(mailbox, 6, time.Now(), makeRawMessage(t, "<res-1@lobbybookings.com>", "nueva reserva", "Reserva: 6057955462"))

	c := connectedClient(t, addr)

	require.NoError(t, c.MarkAsRead(context.Background(), "<res-1@lobbybookings.com>"))

	require.Len(t, mailbox.Messages, 1)
	assert.Contains(t, mailbox.Messages[0].Flags, goimap.SeenFlag)
}

func TestMarkAsReadMissingMessage(t *testing.T) {
	addr, _, _ := buildTestIMAPServer(t)

	c := connectedClient(t, addr)

	assert.NoError(t, c.MarkAsRead(context.Background(), "<gone@lobbybookings.com>"))
}

func TestMoveToFolderCreatesTarget(t *testing.T) {
	addr, user, mailbox := buildTestIMAPServer(t)
	seedMessage(mailbox, 6, time.Now(), makeRawMessage(t, "<res-1@lobbybookings.com>", "nueva reserva", "Reserva: 6057955462"))

	c := connectedClient(t, addr)

	// "Processed" does not exist yet; the move creates it before retrying.
	// Move failures are swallowed, so the call must not error either way.
	require.NoError(t, c.MoveToFolder(context.Background(), "<res-1@lobbybookings.com>", "Processed"))

	mailboxes, err := user.ListMailboxes(false)
	require.NoError(t, err)

	names := make([]string, 0, len(mailboxes))
	for _, mb := range mailboxes {
		names = append(names, mb.Name())
	}
	assert.Contains(t, names, "INBOX.Processed")
}

func TestMoveToFolderMissingMessage(t *testing.T) {
	addr, _, _ := buildTestIMAPServer(t)

	c := connectedClient(t, addr)

	assert.NoError(t, c.MoveToFolder(context.Background(), "<gone@lobbybookings.com>", "Processed"))
}

func TestDisconnectWithoutConnect(t *testing.T) {
	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "debug"})
	appLogger.InitLogger()

	c := NewClientFactory(appLogger).NewClient(&models.TenantMailSettings{Tenant: "lafamilia"}).(*MailboxClient)
	assert.NoError(t, c.Disconnect())
}

func TestConnectBadCredentials(t *testing.T) {
	addr, _, _ := buildTestIMAPServer(t)

	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "debug"})
	appLogger.InitLogger()

	settings := testSettings(t, addr)
	settings.ImapPassword = "wrong"

	c := NewClientFactory(appLogger).NewClient(settings).(*MailboxClient)
	assert.Error(t, c.Connect(context.Background()))
}
