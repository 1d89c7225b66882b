package http_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/student-auth/internal/domain"
	"github.com/spec-kit/student-auth/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users []domain.User
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = int64(len(m.users) + 1)
	m.users = append(m.users, *user)
	return nil
}

func (m *memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) exists(match func(domain.User) bool) (bool, error) {
	_, err := m.find(match)
	return err == nil, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.ID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Username == username })
}

func (m *memUsers) GetByUsernameOrEmail(_ context.Context, login string) (*domain.User, error) {
	if u, err := m.find(func(u domain.User) bool { return u.Username == login }); err == nil {
		return u, nil
	}
	return m.find(func(u domain.User) bool { return emailOf(u) == login })
}

func (m *memUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return m.exists(func(u domain.User) bool { return u.Username == username })
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return m.exists(func(u domain.User) bool { return emailOf(u) == email })
}

func (m *memUsers) ExistsByRollNo(_ context.Context, rollNo int) (bool, error) {
	return m.exists(func(u domain.User) bool { return u.RollNo == rollNo })
}

func emailOf(u domain.User) string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

type memTokens struct {
	mu     sync.Mutex
	tokens []domain.RefreshToken
}

func (m *memTokens) Save(_ context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.save(token)
	return nil
}

func (m *memTokens) save(token *domain.RefreshToken) {
	token.ID = int64(len(m.tokens) + 1)
	m.tokens = append(m.tokens, *token)
}

func (m *memTokens) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token {
			found := t
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTokens) FindValid(_ context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID && t.Valid(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTokens) RevokeAll(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoke(func(t domain.RefreshToken) bool { return t.UserID == userID }), nil
}

func (m *memTokens) RevokeOne(_ context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoke(func(t domain.RefreshToken) bool { return t.Token == token }), nil
}

func (m *memTokens) revoke(match func(domain.RefreshToken) bool) int64 {
	var n int64
	for i := range m.tokens {
		if match(m.tokens[i]) && !m.tokens[i].Revoked {
			m.tokens[i].Revoked = true
			n++
		}
	}
	return n
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tokens[:0]
	var removed int64
	for _, t := range m.tokens {
		if t.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.tokens = kept
	return removed, nil
}

func (m *memTokens) Rotate(_ context.Context, userID int64, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoke(func(t domain.RefreshToken) bool { return t.UserID == userID })
	m.save(token)
	return nil
}

type memStudents struct {
	mu       sync.Mutex
	nextID   int64
	students []domain.Student
}

func (m *memStudents) filter(match func(domain.Student) bool) []domain.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Student{}
	for _, s := range m.students {
		if match(s) {
			out = append(out, s)
		}
	}
	return out
}

func (m *memStudents) one(match func(domain.Student) bool) (*domain.Student, error) {
	found := m.filter(match)
	if len(found) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &found[0], nil
}

func (m *memStudents) List(context.Context) ([]domain.Student, error) {
	return m.filter(func(domain.Student) bool { return true }), nil
}

func (m *memStudents) GetByID(_ context.Context, id int64) (*domain.Student, error) {
	return m.one(func(s domain.Student) bool { return s.ID == id })
}

func (m *memStudents) GetByRollNo(_ context.Context, rollNo int) (*domain.Student, error) {
	return m.one(func(s domain.Student) bool { return s.RollNo == rollNo })
}

func (m *memStudents) ExistsByRollNo(_ context.Context, rollNo int) (bool, error) {
	return len(m.filter(func(s domain.Student) bool { return s.RollNo == rollNo })) > 0, nil
}

func (m *memStudents) Create(_ context.Context, student *domain.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	student.ID = m.nextID
	m.students = append(m.students, *student)
	return nil
}

func (m *memStudents) Update(_ context.Context, student *domain.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].ID == student.ID {
			m.students[i] = *student
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memStudents) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].ID == id {
			m.students = append(m.students[:i], m.students[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memStudents) SearchByName(_ context.Context, name string) ([]domain.Student, error) {
	return m.filter(func(s domain.Student) bool {
		return strings.Contains(strings.ToLower(s.Name), strings.ToLower(name))
	}), nil
}

func (m *memStudents) ListByBranch(_ context.Context, branch string) ([]domain.Student, error) {
	return m.filter(func(s domain.Student) bool { return strings.EqualFold(s.Branch, branch) }), nil
}

func (m *memStudents) ListByCourse(_ context.Context, course string) ([]domain.Student, error) {
	return m.filter(func(s domain.Student) bool { return strings.EqualFold(s.Course, course) }), nil
}

// memTx runs the unit of work directly; these tests never fail mid-way.
type memTx struct {
	users  *memUsers
	tokens *memTokens
}

func (m memTx) InTx(_ context.Context, fn func(repository.UserRepository, repository.RefreshTokenRepository) error) error {
	return fn(m.users, m.tokens)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
