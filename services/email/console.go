package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// consoleService prints emails to the std logger instead of sending them. Used in DEV.
type consoleService struct {
	appName          string
	defaultFromEmail mail.Address
	subjPrefix       string
	logger           core.Logger
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		appName:          conf.AppName,
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		logger:           logger,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := svc.SendMessage(msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}(msg)
	}
}

// SendMessage renders msg and prints it.
func (svc *consoleService) SendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(svc.appName); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !(msg.HasRecipients() && msg.HasContent()) {
		return core.ErrNothingToSend
	}
	body, err := svc.format(*msg)
	if err != nil {
		return err
	}
	if !svc.disableOutput {
		log.Println(body)
	}
	return nil
}

func (svc *consoleService) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}

	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock sends synchronously and keeps the sent messages. Used in tests.
type ConsoleServiceMock struct {
	consoleService

	mu           sync.Mutex
	sentMessages []core.EmailMessage
	sendErr      error
}

var _ core.EmailService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			appName:          conf.AppName,
			defaultFromEmail: conf.DefaultFromEmail,
			subjPrefix:       "[" + conf.AppName + "] ",
			logger:           logger,
			disableOutput:    true,
		},
	}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		if err := svc.SendMessage(msg); err != nil {
			svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
		}
	}
}

func (svc *ConsoleServiceMock) SendMessage(msg *core.EmailMessage) error {
	svc.mu.Lock()
	sendErr := svc.sendErr
	svc.mu.Unlock()
	if sendErr != nil {
		return sendErr
	}

	if err := svc.consoleService.SendMessage(msg); err != nil {
		return err
	}
	svc.mu.Lock()
	svc.sentMessages = append(svc.sentMessages, *msg)
	svc.mu.Unlock()
	return nil
}

// FailWith makes every following send return err, until Reset.
func (svc *ConsoleServiceMock) FailWith(err error) {
	svc.mu.Lock()
	svc.sendErr = err
	svc.mu.Unlock()
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sentMessages...)
}

// Reset forgets the messages sent so far and clears FailWith.
func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	svc.sentMessages = nil
	svc.sendErr = nil
	svc.mu.Unlock()
}
