package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// InviteEmail carries everything needed to render an invitation message.
type InviteEmail struct {
	To           string
	ExamTitle    string
	ExamDate     time.Time
	Venue        string
	ResponseURL  string
	ExpiresAt    time.Time
	InviterName  string
	CollegeName  string
}

// Mailer sends invitation emails. Sending is best-effort: callers log
// failures and move on, the invitation row is already persisted.
type Mailer interface {
	SendInvite(ctx context.Context, msg InviteEmail) error
}

type sendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     *slog.Logger
}

// NewSendgridMailer builds a Mailer backed by the SendGrid v3 API.
func NewSendgridMailer(apiKey, appName, fromEmail string, logger *slog.Logger) Mailer {
	return &sendgridMailer{
		key:        apiKey,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
		logger:     logger,
	}
}

func (m *sendgridMailer) SendInvite(ctx context.Context, msg InviteEmail) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + fmt.Sprintf("Invitation: external examiner for %s", msg.ExamTitle)
	p.AddTos(sgmail.NewEmail("", msg.To))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(
		sgmail.NewContent("text/plain", m.renderText(msg)),
		sgmail.NewContent("text/html", m.renderHTML(msg)),
	)

	req := sendgrid.GetRequest(m.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sending invite email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sending invite email: status %d: %s", res.StatusCode, res.Body)
	}

	m.logger.Info("Invite email sent", "to", msg.To, "exam", msg.ExamTitle)
	return nil
}

func (m *sendgridMailer) renderText(msg InviteEmail) string {
	return fmt.Sprintf(
		"You have been invited by %s (%s) to serve as an external examiner for %q on %s at %s.\n\n"+
			"Please accept or decline here: %s\n\n"+
			"This invitation expires on %s.",
		msg.InviterName, msg.CollegeName, msg.ExamTitle,
		msg.ExamDate.Format("Mon, 02 Jan 2006 15:04"), msg.Venue,
		msg.ResponseURL,
		msg.ExpiresAt.Format("Mon, 02 Jan 2006 15:04"),
	)
}

func (m *sendgridMailer) renderHTML(msg InviteEmail) string {
	return fmt.Sprintf(
		"<p>You have been invited by <b>%s</b> (%s) to serve as an external examiner for <b>%s</b> on %s at %s.</p>"+
			"<p><a href=%q>Accept or decline the invitation</a></p>"+
			"<p>This invitation expires on %s.</p>",
		msg.InviterName, msg.CollegeName, msg.ExamTitle,
		msg.ExamDate.Format("Mon, 02 Jan 2006 15:04"), msg.Venue,
		msg.ResponseURL,
		msg.ExpiresAt.Format("Mon, 02 Jan 2006 15:04"),
	)
}
