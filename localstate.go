package walletauth

import "sync"

// ConnectionState is the client-local record of a connected wallet.
// UX convenience only, never a security boundary.
type ConnectionState struct {
	Address    string     `json:"address"`
	WalletType WalletType `json:"walletType"`
}

// ConnectionStore persists connection state across reloads so the UI can
// keep showing "connected". Cleared on logout, disconnect or any failed
// auth flow.
type ConnectionStore interface {
	Load() (ConnectionState, bool)
	Save(state ConnectionState)
	Clear()
}

// MemoryConnectionStore keeps connection state in memory.
type MemoryConnectionStore struct {
	mu    sync.Mutex
	state ConnectionState
	set   bool
}

// NewMemoryConnectionStore creates an empty connection store.
func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{}
}

// Load returns the stored state, if any.
func (s *MemoryConnectionStore) Load() (ConnectionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state, s.set
}

// Save stores the connection state.
func (s *MemoryConnectionStore) Save(state ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.set = true
}

// Clear removes the connection state.
func (s *MemoryConnectionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ConnectionState{}
	s.set = false
}
