// Package session holds the merchant's authentication state: token, user
// and merchant profile, mirrored to a JSON file so the console stays logged
// in between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Thorwig/sovy-merchant/internal/models"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type Manager struct {
	mu   sync.RWMutex
	sess *models.Session
	file string

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int

	now func() time.Time
}

// NewManager loads any previously persisted session from file. A missing
// file is not an error; a corrupt one is.
func NewManager(file string) (*Manager, error) {
	m := &Manager{
		file: file,
		subs: make(map[int]func()),
		now:  time.Now,
	}
	if err := m.loadFromFile(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadFromFile() error {
	data, err := os.ReadFile(m.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return fmt.Errorf("decode session file: %w", err)
	}
	if sess.Token != "" {
		m.sess = &sess
	}
	return nil
}

func (m *Manager) saveToFile() error {
	if m.sess == nil {
		err := os.Remove(m.file)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := json.MarshalIndent(m.sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.file, data, 0600)
}

// Install replaces the current session, typically after a successful login.
func (m *Manager) Install(sess models.Session) error {
	m.mu.Lock()
	m.sess = &sess
	err := m.saveToFile()
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.notify()
	return nil
}

// Clear wipes both the in-memory and the persisted session. Used on logout
// and whenever the backend answers 401.
func (m *Manager) Clear() error {
	m.mu.Lock()
	wasSet := m.sess != nil
	m.sess = nil
	err := m.saveToFile()
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if wasSet {
		m.notify()
	}
	return nil
}

// UpdateMerchant stores a fresh merchant profile inside the session, keeping
// the persisted copy in sync after a profile edit.
func (m *Manager) UpdateMerchant(p models.MerchantProfile) error {
	m.mu.Lock()
	if m.sess == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.sess.Merchant = &p
	err := m.saveToFile()
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.notify()
	return nil
}

// Token returns the bearer token, or "" when there is no session or the
// token's exp claim has passed.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return ""
	}
	if expired(m.sess.Token, m.now()) {
		return ""
	}
	return m.sess.Token
}

// Authenticated reports whether a usable token is present.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Current returns a copy of the session, or nil when logged out.
func (m *Manager) Current() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil
	}
	cp := *m.sess
	return &cp
}

// Merchant returns the cached merchant profile, or nil.
func (m *Manager) Merchant() *models.MerchantProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil || m.sess.Merchant == nil {
		return nil
	}
	cp := *m.sess.Merchant
	return &cp
}

// Subscribe registers fn to run after every session change. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func()) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// expired inspects the token's exp claim without verifying the signature;
// verification is the backend's job, the console only avoids presenting a
// token it already knows is dead. Tokens that do not parse as JWTs are kept
// and left for the backend to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(now)
}
