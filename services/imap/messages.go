package imap

import (
	"context"
	"fmt"
	"net/textproto"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"

	er "github.com/openstay/reservstack/internal/errors"
	"github.com/openstay/reservstack/internal/tracing"
)

// findMessage locates a message in the currently selected folder by its
// Message-Id header. A nil seq set means the message is gone, which callers
// treat as already handled.
func (m *MailboxClient) findMessage(messageID string) (*goimap.SeqSet, error) {
	criteria := goimap.NewSearchCriteria()
	criteria.Header = make(textproto.MIMEHeader)
	criteria.Header.Add("Message-Id", messageID)

	m.client.Timeout = commandTimeout
	seqNums, err := m.client.Search(criteria)
	m.client.Timeout = 0

	if err != nil {
		return nil, fmt.Errorf("searching for message %s: %w", messageID, err)
	}

	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(seqNums...)

	return seqSet, nil
}

func (m *MailboxClient) MarkAsRead(ctx context.Context, messageID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxClient.MarkAsRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("message.id", messageID)

	if m.client == nil {
		return er.ErrNotConnected
	}

	if err := m.selectFolder(ctx); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	seqSet, err := m.findMessage(messageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if seqSet == nil {
		m.log.Warnf("[%s] Message %s not found, cannot mark as read", m.settings.Tenant, messageID)
		return nil
	}

	item := goimap.FormatFlagsOp(goimap.AddFlags, true)
	flags := []interface{}{goimap.SeenFlag}

	m.client.Timeout = commandTimeout
	err = m.client.Store(seqSet, item, flags, nil)
	m.client.Timeout = 0

	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("marking message %s as read: %w", messageID, err)
	}

	return nil
}

// MoveToFolder files a processed message away from the source folder. Move
// failures are not fatal: an unmovable message stays in the source folder and
// duplicate detection keeps it from being ingested twice.
func (m *MailboxClient) MoveToFolder(ctx context.Context, messageID string, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxClient.MoveToFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("message.id", messageID)
	span.SetTag("folder.target", folder)

	if folder == "" {
		m.log.Warnf("[%s] Processed folder not configured, message stays in place", m.settings.Tenant)
		return nil
	}

	if m.client == nil {
		return er.ErrNotConnected
	}

	if err := m.selectFolder(ctx); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	seqSet, err := m.findMessage(messageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if seqSet == nil {
		m.log.Warnf("[%s] Message %s not found, cannot move", m.settings.Tenant, messageID)
		return nil
	}

	fullFolderName := qualifyFolderName(folder)

	m.client.Timeout = commandTimeout
	err = m.client.Move(seqSet, fullFolderName)
	m.client.Timeout = 0

	if err == nil {
		return nil
	}

	// Target folder may not exist yet. Create it and retry once; if the move
	// still fails the message simply stays in the source folder.
	m.client.Timeout = commandTimeout
	createErr := m.client.Create(fullFolderName)
	m.client.Timeout = 0

	if createErr != nil && !strings.Contains(strings.ToLower(createErr.Error()), "already exists") {
		m.log.Warnf("[%s] Could not create folder %s, message stays in place: %v", m.settings.Tenant, fullFolderName, createErr)
		return nil
	}

	m.client.Timeout = commandTimeout
	err = m.client.Move(seqSet, fullFolderName)
	m.client.Timeout = 0

	if err != nil {
		m.log.Warnf("[%s] Could not move message %s to %s: %v", m.settings.Tenant, messageID, fullFolderName, err)
		tracing.TraceErr(span, err)
	}

	return nil
}

// qualifyFolderName prefixes bare folder names with the INBOX namespace used
// by most hosted IMAP servers.
func qualifyFolderName(folder string) string {
	if folder == "INBOX" || strings.HasPrefix(folder, "INBOX.") {
		return folder
	}
	return "INBOX." + folder
}
