package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/student-auth/internal/auth"
	"github.com/spec-kit/student-auth/internal/domain"
	"github.com/spec-kit/student-auth/internal/events"
	"github.com/spec-kit/student-auth/internal/repository"
)

const testSecret = "service-test-secret-0123456789abcdef"

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*domain.User
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*domain.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byID {
		if u.Username == user.Username {
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"}
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = epoch
	user.UpdatedAt = epoch
	stored := *user
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if u := f.byID[id]; match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Username == username })
}

func (f *fakeUsers) GetByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error) {
	if u, err := f.GetByUsername(ctx, login); err == nil {
		return u, nil
	}
	return f.find(func(u *domain.User) bool { return u.Email != nil && *u.Email == login })
}

func (f *fakeUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := f.find(func(u *domain.User) bool { return u.Email != nil && *u.Email == email })
	return err == nil, nil
}

func (f *fakeUsers) ExistsByRollNo(_ context.Context, rollNo int) (bool, error) {
	_, err := f.find(func(u *domain.User) bool { return u.RollNo == rollNo })
	return err == nil, nil
}

func (f *fakeUsers) snapshot() (int64, map[int64]*domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byID := make(map[int64]*domain.User, len(f.byID))
	for id, u := range f.byID {
		copied := *u
		byID[id] = &copied
	}
	return f.nextID, byID
}

func (f *fakeUsers) restore(nextID int64, byID map[int64]*domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID = nextID
	f.byID = byID
}

func (f *fakeUsers) update(id int64, change func(*domain.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	change(f.byID[id])
}

// fakeTokens is an in-memory RefreshTokenRepository; Rotate is atomic.
type fakeTokens struct {
	mu      sync.Mutex
	nextID  int64
	byToken map[string]*domain.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byToken: map[string]*domain.RefreshToken{}}
}

func (f *fakeTokens) saveLocked(token *domain.RefreshToken) error {
	if _, exists := f.byToken[token.Token]; exists {
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "refresh_tokens_token_key"}
	}
	f.nextID++
	token.ID = f.nextID
	stored := *token
	f.byToken[token.Token] = &stored
	return nil
}

func (f *fakeTokens) revokeAllLocked(userID int64) int64 {
	var n int64
	for _, t := range f.byToken {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n
}

func (f *fakeTokens) Save(_ context.Context, token *domain.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(token)
}

func (f *fakeTokens) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byToken[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTokens) FindValid(_ context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RefreshToken
	for _, t := range f.byToken {
		if t.UserID == userID && t.Valid(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokens) RevokeAll(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revokeAllLocked(userID), nil
}

func (f *fakeTokens) RevokeOne(_ context.Context, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byToken[token]
	if !ok {
		return 0, nil
	}
	t.Revoked = true
	return 1, nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, t := range f.byToken {
		if t.ExpiresAt.Before(now) {
			delete(f.byToken, key)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) Rotate(_ context.Context, userID int64, token *domain.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeAllLocked(userID)
	return f.saveLocked(token)
}

func (f *fakeTokens) update(token string, change func(*domain.RefreshToken)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	change(f.byToken[token])
}

// fakeTx undoes user inserts when the unit of work fails. Token writes are
// the last step of every unit of work, so they need no undo.
type fakeTx struct {
	users  *fakeUsers
	tokens repository.RefreshTokenRepository
}

func (f fakeTx) InTx(_ context.Context, fn func(repository.UserRepository, repository.RefreshTokenRepository) error) error {
	nextID, byID := f.users.snapshot()
	if err := fn(f.users, f.tokens); err != nil {
		f.users.restore(nextID, byID)
		return err
	}
	return nil
}

// mockTokens lets a test script refresh store failures.
type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Save(ctx context.Context, token *domain.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, token)
	rt, _ := args.Get(0).(*domain.RefreshToken)
	return rt, args.Error(1)
}

func (m *mockTokens) FindValid(ctx context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error) {
	args := m.Called(ctx, userID, now)
	tokens, _ := args.Get(0).([]domain.RefreshToken)
	return tokens, args.Error(1)
}

func (m *mockTokens) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokens) RevokeOne(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokens) Rotate(ctx context.Context, userID int64, token *domain.RefreshToken) error {
	return m.Called(ctx, userID, token).Error(0)
}

// recordingDispatcher keeps every published event.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type authFixture struct {
	clock      *testclock.Clock
	users      *fakeUsers
	tokens     *fakeTokens
	dispatcher *recordingDispatcher
	validator  *auth.Validator
	issuer     *auth.Issuer
	service    *AuthService
}

func newAuthFixture(t testing.TB) *authFixture {
	t.Helper()
	clk := testclock.NewClock(epoch)
	codec, err := auth.NewCodec(testSecret, clk)
	require.NoError(t, err)

	f := &authFixture{
		clock:      clk,
		users:      newFakeUsers(),
		tokens:     newFakeTokens(),
		dispatcher: &recordingDispatcher{},
		validator:  auth.NewValidator(codec, clk, nil),
		issuer:     auth.NewIssuer(codec, auth.DefaultAccessTokenTTL, auth.DefaultRefreshTokenTTL),
	}
	f.service = f.newService(f.tokens)
	return f
}

func (f *authFixture) newService(tokens repository.RefreshTokenRepository) *AuthService {
	return NewAuthService(AuthDependencies{
		UserRepo:         f.users,
		RefreshTokenRepo: tokens,
		Tx:               fakeTx{users: f.users, tokens: tokens},
		Hasher:           auth.NewBcryptHasher(bcrypt.MinCost),
		Issuer:           f.issuer,
		Validator:        f.validator,
		Clock:            f.clock,
		Dispatcher:       f.dispatcher,
	})
}

func (f *authFixture) register(t testing.TB, username string, rollNo int, role string) *AuthResponse {
	t.Helper()
	email := strings.ToLower(username) + "@example.com"
	resp, err := f.service.Register(context.Background(), RegisterInput{
		Username: username,
		Password: "password123",
		Email:    &email,
		RollNo:   rollNo,
		Role:     role,
	})
	require.NoError(t, err)
	return resp
}

// fakeStudents is an in-memory StudentRepository.
type fakeStudents struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Student
}

func newFakeStudents(seed ...domain.Student) *fakeStudents {
	f := &fakeStudents{byID: map[int64]*domain.Student{}}
	for _, s := range seed {
		s := s
		f.nextID++
		s.ID = f.nextID
		f.byID[s.ID] = &s
	}
	return f
}

func (f *fakeStudents) sorted(match func(*domain.Student) bool) []domain.Student {
	out := make([]domain.Student, 0)
	for _, s := range f.byID {
		if match(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out
}

func (f *fakeStudents) List(context.Context) ([]domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(*domain.Student) bool { return true }), nil
}

func (f *fakeStudents) GetByID(_ context.Context, id int64) (*domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStudents) GetByRollNo(_ context.Context, rollNo int) (*domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.RollNo == rollNo {
			copied := *s
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStudents) ExistsByRollNo(ctx context.Context, rollNo int) (bool, error) {
	_, err := f.GetByRollNo(ctx, rollNo)
	return err == nil, nil
}

func (f *fakeStudents) Create(_ context.Context, s *domain.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt, s.UpdatedAt = epoch, epoch
	stored := *s
	f.byID[s.ID] = &stored
	return nil
}

func (f *fakeStudents) Update(_ context.Context, s *domain.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *s
	f.byID[s.ID] = &stored
	return nil
}

func (f *fakeStudents) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeStudents) SearchByName(_ context.Context, name string) ([]domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(name)
	return f.sorted(func(s *domain.Student) bool { return strings.Contains(strings.ToLower(s.Name), needle) }), nil
}

func (f *fakeStudents) ListByBranch(_ context.Context, branch string) ([]domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(s *domain.Student) bool { return strings.EqualFold(s.Branch, branch) }), nil
}

func (f *fakeStudents) ListByCourse(_ context.Context, course string) ([]domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(s *domain.Student) bool { return strings.EqualFold(s.Course, course) }), nil
}
