package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/darasa/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	errRateLimited = errors.New("rate limited by SendGrid")
)

type sendgridService struct {
	appName    string
	key        string
	from       *sgmail.Email
	subjPrefix string
	sandbox    bool // validate requests without delivering them
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		appName:    conf.AppName,
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		sandbox:    conf.TestMode,
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			err := svc.SendMessage(msg)
			switch {
			case err == nil:
			case errors.Is(err, errRateLimited):
				svc.logger.Warn(fmt.Sprintf("sending %q email: %v", msg.Subject, err))
			default:
				svc.logger.Error(fmt.Sprintf("sending %q email: %v", msg.Subject, err), err)
			}
		}()
	}
}

func (svc sendgridService) SendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(svc.appName); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !(msg.HasRecipients() && msg.HasContent()) {
		return core.ErrNothingToSend
	}
	return svc.send(*msg)
}

func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(svc.getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(svc.getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	// absence notices and password resets are tracked separately in SendGrid stats
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}
	if svc.sandbox {
		m.SetMailSettings(sgmail.NewMailSettings().SetSandboxMode(sgmail.NewSetting(true)))
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	switch {
	case err != nil:
		return errors.Wrap(err, "calling SendGrid")
	case res.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case res.StatusCode >= http.StatusBadRequest:
		return errors.Errorf("SendGrid status: %d - Body: %s", res.StatusCode, res.Body)
	}
	return nil
}
