// Package credentials keeps the client's persisted login state behind typed
// accessors. Wallet key material is never stored.
package credentials

import (
	"errors"
	"sync"
)

// User is the signed-in account.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
}

// Device identifies this installation to the backend across logins.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Wallet is the connected wallet's public state.
type Wallet struct {
	Address    string `json:"address,omitempty"`
	Connected  bool   `json:"connected"`
	ETHBalance string `json:"eth_balance,omitempty"`
}

// State is everything persisted between runs.
type State struct {
	Token     string `json:"token,omitempty"`
	User      *User  `json:"user,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Device    Device `json:"device"`
	Wallet    Wallet `json:"wallet"`
}

// Backend loads and saves State.
type Backend interface {
	Load() (*State, error)
	Save(*State) error
}

// ErrNotSignedIn is returned by accessors that need a login.
var ErrNotSignedIn = errors.New("not signed in")

// Store is the injected credential store shared by the client services.
type Store struct {
	mu      sync.RWMutex
	state   State
	backend Backend
}

// Open loads the current state from backend.
func Open(backend Backend) (*Store, error) {
	st, err := backend.Load()
	if err != nil {
		return nil, err
	}
	s := &Store{backend: backend}
	if st != nil {
		s.state = *st
	}
	return s, nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SessionID
}

// User returns the signed-in user.
func (s *Store) User() (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil || s.state.Token == "" {
		return User{}, ErrNotSignedIn
	}
	return *s.state.User, nil
}

func (s *Store) Device() Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Device
}

func (s *Store) Wallet() Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Wallet
}

// SignedIn reports whether a token and user are present.
func (s *Store) SignedIn() bool {
	_, err := s.User()
	return err == nil
}

// SetLogin records a fresh login.
func (s *Store) SetLogin(token, sessionID string, user User) error {
	return s.update(func(st *State) {
		st.Token = token
		st.SessionID = sessionID
		st.User = &user
	})
}

func (s *Store) SetDevice(d Device) error {
	return s.update(func(st *State) { st.Device = d })
}

func (s *Store) SetWallet(w Wallet) error {
	return s.update(func(st *State) { st.Wallet = w })
}

// Clear drops the login and wallet state. The device identity survives so the
// next login is recognised as the same device.
func (s *Store) Clear() error {
	return s.update(func(st *State) {
		device := st.Device
		*st = State{Device: device}
	})
}

// update applies fn in memory first; a failed save still leaves memory updated.
func (s *Store) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	snapshot := s.state
	return s.backend.Save(&snapshot)
}

// MemoryBackend keeps state in process.
type MemoryBackend struct {
	mu    sync.Mutex
	state *State

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

func (m *MemoryBackend) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	cp := *m.state
	return &cp, nil
}

func (m *MemoryBackend) Save(st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *st
	m.state = &cp
	return nil
}
