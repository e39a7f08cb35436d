package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/asgr-game/account-service/internal/core/ports"
)

const confirmationSubject = "Welcome to ASGR. Please confirm your e-mail address"

var confirmationHTML = template.Must(template.New("confirm").Parse(`<html>
  <body>
    <p>Hi,<br>
       This message was automatically generated during the account creation process in the ASGR application.<br>
       To confirm your email address, please click the link below.</p>
    <p><a href="{{.Link}}">Confirm e-mail</a></p>
    <p>Link is active for 24 hours.</p>
  </body>
</html>
`))

// ConfirmationMailer implements ports.ConfirmationMailer. It mails the link
// for the user's most recently issued token.
type ConfirmationMailer struct {
	users   ports.UserRepository
	tokens  ports.ConfirmationRepository
	sender  Sender
	baseURL string
}

var _ ports.ConfirmationMailer = (*ConfirmationMailer)(nil)

func NewConfirmationMailer(users ports.UserRepository, tokens ports.ConfirmationRepository, sender Sender, baseURL string) *ConfirmationMailer {
	return &ConfirmationMailer{
		users:   users,
		tokens:  tokens,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m *ConfirmationMailer) SendConfirmation(ctx context.Context, userID string) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("confirmation mail: load user: %w", err)
	}
	token, err := m.tokens.FindLatestByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("confirmation mail: load token: %w", err)
	}

	msg, err := m.render(user.Email, token.Token)
	if err != nil {
		return fmt.Errorf("confirmation mail: render: %w", err)
	}
	return m.sender.Send(ctx, msg)
}

func (m *ConfirmationMailer) render(to, token string) (Message, error) {
	link := m.baseURL + "/account/confirm_email/" + token

	var html bytes.Buffer
	if err := confirmationHTML.Execute(&html, struct{ Link string }{link}); err != nil {
		return Message{}, err
	}

	text := "Hi,\n" +
		"This message was automatically generated during the account creation process in the ASGR application.\n" +
		"To confirm your email address, please click the link below.\n\n" +
		link + "\n\n" +
		"Link is active for 24 hours."

	return Message{To: to, Subject: confirmationSubject, Text: text, HTML: html.String()}, nil
}
