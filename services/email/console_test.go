package emailsvc

import (
	"log"
	"net/mail"
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/testutil"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testutil.NewConfig(t)
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "TEST : ", log.LstdFlags), conf)
	svc := NewConsoleServiceMock(conf, logger)

	to := mail.Address{Name: "Jane Doe", Address: "jane@test.cd"}
	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{to}, Subject: "Plain", BodyStr: "hello"},
		&core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      "Absence notice",
			TemplateName: "absence_notice",
			TemplateData: struct {
				StudentName, SubjectName, Date, Notes string
			}{StudentName: "Jane Doe", SubjectName: "Math", Date: "2024-03-04"},
		},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{to}, Subject: "unknown template", TemplateName: "nope"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)

	assert.Equal(t, "hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)

	assert.True(t, strings.HasPrefix(sent[1].TextContent, "Hello Jane Doe,"))
	assert.Contains(t, sent[1].TextContent, "Jane Doe was marked absent from Math on 2024-03-04.")
	assert.NotContains(t, sent[1].TextContent, "Notes:")
	assert.Contains(t, sent[1].HTMLContent, "<strong>Math</strong>")
	assert.Contains(t, sent[1].TextContent, conf.AppName)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleServiceMock_SendMessage(t *testing.T) {
	conf := testutil.NewConfig(t)
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "TEST : ", log.LstdFlags), conf)
	svc := NewConsoleServiceMock(conf, logger)
	to := []mail.Address{{Name: "Jane Doe", Address: "jane@test.cd"}}

	err := svc.SendMessage(&core.EmailMessage{Subject: "no recipient", BodyStr: "lost"})
	assert.Equal(t, core.ErrNothingToSend, err)
	assert.Error(t, svc.SendMessage(&core.EmailMessage{To: to, TemplateName: "nope"}))

	svc.FailWith(errors.New("mail server unavailable"))
	assert.EqualError(t, svc.SendMessage(&core.EmailMessage{To: to, BodyStr: "hello"}), "mail server unavailable")
	assert.Empty(t, svc.SentMessages())

	svc.Reset()
	require.NoError(t, svc.SendMessage(&core.EmailMessage{
		To:           to,
		TemplateName: "password_reset",
		TemplateData: struct{ Username, ResetURL string }{Username: "jane", ResetURL: "http://darasa.test/password-reset/MQ/tok"},
	}))
	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.True(t, strings.HasPrefix(sent[0].TextContent, "Hello Jane Doe,\n"))
	assert.Contains(t, sent[0].TextContent, "http://darasa.test/password-reset/MQ/tok\n")
	assert.Contains(t, sent[0].HTMLContent, "<strong>jane</strong>")
}

func TestConsoleService_format(t *testing.T) {
	conf := testutil.NewConfig(t)
	svc := &consoleService{
		appName:          conf.AppName,
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[Darasa] ",
	}

	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "A", Address: "a@test.cd"}, {Address: "b@test.cd"}},
		Subject:     "Hi",
		TextContent: "text body",
		HTMLContent: "<p>html body</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Darasa] Hi\r\n")
	assert.Contains(t, body, `To: "A" <a@test.cd>, <b@test.cd>`)
	assert.NotContains(t, body, "CC:")
	assert.Contains(t, body, "text body")
	assert.Contains(t, body, "<p>html body</p>")
}
