package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgr-game/account-service/internal/core/domain"
)

type fakeUsers struct {
	user *domain.User
}

func (f *fakeUsers) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, domain.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeUsers) Create(context.Context, *domain.User) (*domain.User, error) { return nil, nil }
func (f *fakeUsers) Update(context.Context, *domain.User) error                { return nil }
func (f *fakeUsers) MarkValid(context.Context, string) error                   { return nil }
func (f *fakeUsers) List(context.Context, int, int) ([]*domain.User, error)   { return nil, nil }

type fakeTokens struct {
	latest map[string]*domain.ConfirmationToken
}

func (f *fakeTokens) Create(_ context.Context, t *domain.ConfirmationToken) (*domain.ConfirmationToken, error) {
	return t, nil
}

func (f *fakeTokens) FindLatestByToken(context.Context, string) (*domain.ConfirmationToken, error) {
	return nil, domain.ErrConfirmationNotFound
}

func (f *fakeTokens) FindLatestByUser(_ context.Context, userID string) (*domain.ConfirmationToken, error) {
	if t, ok := f.latest[userID]; ok {
		return t, nil
	}
	return nil, domain.ErrConfirmationNotFound
}

func (f *fakeTokens) MarkUsed(context.Context, string) error { return nil }

type captureSender struct {
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestConfirmationMailer_SendsLatestLink(t *testing.T) {
	users := &fakeUsers{user: &domain.User{ID: "u-1", Email: "alice@example.com"}}
	tokens := &fakeTokens{latest: map[string]*domain.ConfirmationToken{
		"u-1": {Token: "ABCDEFGHIJKLMNOPQRSTUVWXYZ", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	sender := &captureSender{}

	m := NewConfirmationMailer(users, tokens, sender, "http://127.0.0.1:8000/")
	require.NoError(t, m.SendConfirmation(context.Background(), "u-1"))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	link := "http://127.0.0.1:8000/account/confirm_email/ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, confirmationSubject, msg.Subject)
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.HTML, `href="`+link+`"`)
	assert.Contains(t, msg.Text, "Link is active for 24 hours.")
}

func TestConfirmationMailer_MissingToken(t *testing.T) {
	users := &fakeUsers{user: &domain.User{ID: "u-1", Email: "alice@example.com"}}
	m := NewConfirmationMailer(users, &fakeTokens{}, &captureSender{}, "http://localhost")

	err := m.SendConfirmation(context.Background(), "u-1")
	assert.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

func TestConfirmationMailer_SenderFailure(t *testing.T) {
	users := &fakeUsers{user: &domain.User{ID: "u-1", Email: "alice@example.com"}}
	tokens := &fakeTokens{latest: map[string]*domain.ConfirmationToken{"u-1": {Token: "T", UserID: "u-1"}}}
	boom := errors.New("relay down")

	m := NewConfirmationMailer(users, tokens, &captureSender{err: boom}, "http://localhost")
	assert.ErrorIs(t, m.SendConfirmation(context.Background(), "u-1"), boom)
}

func TestBuildMIME(t *testing.T) {
	raw, err := buildMIME("No Reply <no-reply@asgr-game.com>", Message{
		To:      "alice@example.com",
		Subject: confirmationSubject,
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	s := string(raw)
	assert.True(t, strings.HasPrefix(s, "From: No Reply <no-reply@asgr-game.com>\r\n"))
	assert.Contains(t, s, "To: alice@example.com\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "plain body")
	assert.Contains(t, s, "<p>html body</p>")
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("No Reply <no-reply@asgr-game.com>")
	require.NoError(t, err)
	assert.Equal(t, "no-reply@asgr-game.com", addr)

	_, err = parseAddress("not an address")
	assert.Error(t, err)
}
