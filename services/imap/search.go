package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"

	"github.com/openstay/reservstack/interfaces"
	er "github.com/openstay/reservstack/internal/errors"
	"github.com/openstay/reservstack/internal/models"
	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/internal/utils"
)

// buildSearchCriteria limits the search to messages received inside the
// recency window, regardless of their seen state. Read messages must still be
// found so that a run interrupted between store and mark does not lose data.
// From and subject filters narrow the result when configured; IMAP OR takes
// exactly two operands, so longer filter lists are folded into a nested chain.
func buildSearchCriteria(settings *models.TenantMailSettings, since time.Time) *goimap.SearchCriteria {
	criteria := goimap.NewSearchCriteria()
	criteria.Since = since

	addAnyOfHeader(criteria, "From", settings.FromFilters)
	addAnyOfHeader(criteria, "Subject", settings.SubjectFilters)

	return criteria
}

// addAnyOfHeader ANDs a "header matches any of values" clause onto criteria.
func addAnyOfHeader(criteria *goimap.SearchCriteria, field string, values []string) {
	if len(values) == 0 {
		return
	}

	if len(values) == 1 {
		if criteria.Header == nil {
			criteria.Header = make(textproto.MIMEHeader)
		}
		criteria.Header.Add(field, values[0])
		return
	}

	terms := make([]*goimap.SearchCriteria, len(values))
	for i, value := range values {
		c := goimap.NewSearchCriteria()
		c.Header = make(textproto.MIMEHeader)
		c.Header.Add(field, value)
		terms[i] = c
	}

	combined := terms[0]
	for _, term := range terms[1 : len(terms)-1] {
		parent := goimap.NewSearchCriteria()
		parent.Or = [][2]*goimap.SearchCriteria{{combined, term}}
		combined = parent
	}

	criteria.Or = append(criteria.Or, [2]*goimap.SearchCriteria{combined, terms[len(terms)-1]})
}

// FetchMessages searches the source folder for recent messages matching the
// configured filters and downloads their full bodies.
func (m *MailboxClient) FetchMessages(ctx context.Context) ([]*interfaces.MailMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxClient.FetchMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if m.client == nil {
		return nil, er.ErrNotConnected
	}

	if err := m.selectFolder(ctx); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	criteria := buildSearchCriteria(m.settings, utils.Now().Add(-recencyWindow))

	m.client.Timeout = commandTimeout
	seqNums, err := m.client.Search(criteria)
	m.client.Timeout = 0

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	span.SetTag("messages.matched", len(seqNums))
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{
		section.FetchItem(),
		goimap.FetchEnvelope,
		goimap.FetchInternalDate,
	}

	messages := make(chan *goimap.Message, len(seqNums))
	if err := m.client.Fetch(seqSet, items, messages); err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	result := make([]*interfaces.MailMessage, 0, len(seqNums))
	for msg := range messages {
		mail, err := m.decodeMessage(msg)
		if err != nil {
			m.log.Warnf("[%s] Skipping undecodable message %d: %v", m.settings.Tenant, msg.SeqNum, err)
			continue
		}
		result = append(result, mail)
	}

	span.SetTag("messages.decoded", len(result))

	return result, nil
}

func (m *MailboxClient) decodeMessage(msg *goimap.Message) (*interfaces.MailMessage, error) {
	section := &goimap.BodySectionName{Peek: true}
	literal := msg.GetBody(section)
	if literal == nil {
		return nil, fmt.Errorf("message %d has no body section", msg.SeqNum)
	}

	raw, err := io.ReadAll(literal)
	if err != nil {
		return nil, fmt.Errorf("reading message %d body: %w", msg.SeqNum, err)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message %d: %w", msg.SeqNum, err)
	}

	mail := &interfaces.MailMessage{
		MessageID: envelope.GetHeader("Message-Id"),
		From:      envelope.GetHeader("From"),
		Subject:   envelope.GetHeader("Subject"),
		Text:      envelope.Text,
		HTML:      envelope.HTML,
		Date:      msg.InternalDate,
	}

	if mail.MessageID == "" {
		mail.MessageID = fmt.Sprintf("email-%d-%d", msg.SeqNum, utils.Now().UnixNano())
	}
	if mail.From == "" && msg.Envelope != nil && len(msg.Envelope.From) > 0 {
		mail.From = msg.Envelope.From[0].Address()
	}
	if mail.Date.IsZero() && msg.Envelope != nil {
		mail.Date = msg.Envelope.Date
	}

	return mail, nil
}
