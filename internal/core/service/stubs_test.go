package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/infrastructure/crypto"
	"github.com/asgr-game/account-service/internal/infrastructure/token"
)

// ---------------------------------------------------------------------------
// In-memory store shared by the user and confirmation stubs.
// ---------------------------------------------------------------------------

type memStore struct {
	mu     sync.Mutex
	seq    int
	users  map[string]domain.User
	tokens []domain.ConfirmationToken
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]domain.User)}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *memStore) user(id string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *memStore) latestTokenFor(userID string) domain.ConfirmationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest domain.ConfirmationToken
	for _, t := range s.tokens {
		if t.UserID == userID && !t.CreatedAt.Before(latest.CreatedAt) {
			latest = t
		}
	}
	return latest
}

type stubUsers struct {
	s *memStore
	// blindLookup makes FindByEmail miss, as a concurrent registration would.
	blindLookup bool
	findErr     error
	updateErr   error
}

func (r *stubUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.blindLookup {
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.s.users {
		if u.Email == email {
			clone := u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *stubUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	clone := *user
	clone.ID = r.s.nextID("user")
	r.s.users[clone.ID] = clone
	return &clone, nil
}

func (r *stubUsers) Update(_ context.Context, user *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *stubUsers) MarkValid(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsValid = true
	r.s.users[id] = u
	return nil
}

func (r *stubUsers) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		clone := u
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type stubTokens struct {
	s         *memStore
	createErr error
	// markUsedErr simulates a concurrent confirmation winning the race.
	markUsedErr error
}

func (r *stubTokens) Create(_ context.Context, t *domain.ConfirmationToken) (*domain.ConfirmationToken, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *t
	clone.ID = r.s.nextID("tok")
	r.s.tokens = append(r.s.tokens, clone)
	return &clone, nil
}

func (r *stubTokens) findLatest(match func(domain.ConfirmationToken) bool) (*domain.ConfirmationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found []domain.ConfirmationToken
	for _, t := range r.s.tokens {
		if match(t) {
			found = append(found, t)
		}
	}
	if len(found) == 0 {
		return nil, domain.ErrConfirmationNotFound
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	latest := found[0]
	return &latest, nil
}

func (r *stubTokens) FindLatestByToken(_ context.Context, value string) (*domain.ConfirmationToken, error) {
	return r.findLatest(func(t domain.ConfirmationToken) bool { return t.Token == value })
}

func (r *stubTokens) FindLatestByUser(_ context.Context, userID string) (*domain.ConfirmationToken, error) {
	return r.findLatest(func(t domain.ConfirmationToken) bool { return t.UserID == userID })
}

func (r *stubTokens) MarkUsed(_ context.Context, id string) error {
	if r.markUsedErr != nil {
		return r.markUsedErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, t := range r.s.tokens {
		if t.ID == id {
			if t.IsUsed {
				return domain.ErrConfirmationConsumed
			}
			r.s.tokens[i].IsUsed = true
			return nil
		}
	}
	return domain.ErrConfirmationNotFound
}

// memTx restores the store snapshot when the unit of work fails.
type memTx struct {
	s *memStore
}

func (tx memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.s.mu.Lock()
	users := make(map[string]domain.User, len(tx.s.users))
	for k, v := range tx.s.users {
		users[k] = v
	}
	tokens := append([]domain.ConfirmationToken(nil), tx.s.tokens...)
	tx.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		tx.s.mu.Lock()
		tx.s.users = users
		tx.s.tokens = tokens
		tx.s.mu.Unlock()
		return err
	}
	return nil
}

type stubEvents struct {
	mu      sync.Mutex
	err     error
	records []domain.EventLogRecord
}

func (e *stubEvents) Append(_ context.Context, r *domain.EventLogRecord) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, *r)
	return nil
}

func (e *stubEvents) ofType(t domain.EventType) []domain.EventLogRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.EventLogRecord
	for _, r := range e.records {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

type stubMail struct {
	mu       sync.Mutex
	enqueued []string
}

func (m *stubMail) Enqueue(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, userID)
}

type stubDenylist struct {
	revoked map[string]time.Time
}

func (d *stubDenylist) Revoke(_ context.Context, id string, until time.Time) error {
	d.revoked[id] = until
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := d.revoked[id]
	return ok, nil
}

type stubOrigin struct {
	err error
}

func (o stubOrigin) Lookup(_ context.Context, addr string) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	return addr + " (client.example.net)", nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ---------------------------------------------------------------------------
// Helper: a fully wired AccountService over the in-memory stubs.
// ---------------------------------------------------------------------------

type testEnv struct {
	svc      *AccountService
	store    *memStore
	users    *stubUsers
	tokens   *stubTokens
	events   *stubEvents
	mail     *stubMail
	denylist *stubDenylist
	clock    *testClock
	hasher   *crypto.BcryptHasher
	issuer   *token.JWTIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	env := &testEnv{
		store:    store,
		users:    &stubUsers{s: store},
		tokens:   &stubTokens{s: store},
		events:   &stubEvents{},
		mail:     &stubMail{},
		denylist: &stubDenylist{revoked: make(map[string]time.Time)},
		clock:    &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		hasher:   crypto.NewBcryptHasher(bcrypt.MinCost),
	}

	issuer, err := token.NewJWTIssuer("test-secret", "HS256", token.WithClock(env.clock.Now))
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	env.issuer = issuer

	tx := memTx{s: store}
	confirm := NewConfirmationService(env.tokens, env.users, tx, 0, zerolog.Nop())
	env.svc = NewAccountService(AccountDeps{
		Users:        env.users,
		Confirmation: confirm,
		Hasher:       env.hasher,
		Issuer:       issuer,
		Events:       env.events,
		Tx:           tx,
		Denylist:     env.denylist,
		Mail:         env.mail,
		Origin:       stubOrigin{},
		Now:          env.clock.Now,
	}, zerolog.Nop())
	return env
}
