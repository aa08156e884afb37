package lendkit

import (
	"context"
	"slices"
	"sync"
)

// SnapshotStore keeps the role snapshot captured for each session.
type SnapshotStore interface {
	// Put stores the snapshot of a session, replacing any previous one.
	Put(ctx context.Context, sessionID string, snapshot RoleSnapshot) error

	// Get returns the snapshot of a session, or nil and no error when absent.
	Get(ctx context.Context, sessionID string) (*RoleSnapshot, error)

	// Delete forgets a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error
}

// MemorySnapshotStore is an in-process SnapshotStore. Snapshots never expire.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]RoleSnapshot
}

// NewMemorySnapshotStore creates an empty MemorySnapshotStore.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[string]RoleSnapshot)}
}

// Put implements SnapshotStore.
func (m *MemorySnapshotStore) Put(_ context.Context, sessionID string, snapshot RoleSnapshot) error {
	snapshot.LibraryIDs = slices.Clone(snapshot.LibraryIDs)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = snapshot
	return nil
}

// Get implements SnapshotStore.
func (m *MemorySnapshotStore) Get(_ context.Context, sessionID string) (*RoleSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[sessionID]
	if !ok {
		return nil, nil
	}
	s.LibraryIDs = slices.Clone(s.LibraryIDs)
	return &s, nil
}

// Delete implements SnapshotStore.
func (m *MemorySnapshotStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}

// SessionManager captures a RoleSnapshot when a session starts and serves it
// for the rest of the session. Role or library changes made meanwhile reach
// the session only on Refresh or the next Login.
type SessionManager struct {
	roles     *RoleAssignmentEngine
	libraries *LibraryAssignmentManager
	snapshots SnapshotStore
	clock     Clock
}

// NewSessionManager creates a SessionManager.
// A nil SnapshotStore means an in-process MemorySnapshotStore.
func NewSessionManager(roles *RoleAssignmentEngine, libraries *LibraryAssignmentManager, snapshots SnapshotStore) *SessionManager {
	if snapshots == nil {
		snapshots = NewMemorySnapshotStore()
	}
	return &SessionManager{
		roles:     roles,
		libraries: libraries,
		snapshots: snapshots,
		clock:     roles.clock,
	}
}

// Capture reads the live role and library set of a user.
func (sm *SessionManager) Capture(ctx context.Context, userID string) (RoleSnapshot, error) {
	user, err := sm.roles.GetUser(ctx, userID)
	if err != nil {
		return RoleSnapshot{}, err
	}
	if user == nil {
		return RoleSnapshot{}, NewError(ErrNotFound, MsgUserNotFound).WithUser(userID)
	}
	libraryIDs, err := sm.libraries.GetAssignedLibraries(ctx, userID)
	if err != nil {
		return RoleSnapshot{}, err
	}
	return RoleSnapshot{
		UserID:     userID,
		Role:       user.Role,
		LibraryIDs: libraryIDs,
		CapturedAt: sm.clock(),
	}, nil
}

// Login captures the snapshot the session will use until it ends or is refreshed.
//
// Example:
//
//	snapshot, err := sessions.Login(ctx, sessionID, userID)
//	if lendkit.IsNotFound(err) {
//	    // unknown user
//	}
func (sm *SessionManager) Login(ctx context.Context, sessionID, userID string) (RoleSnapshot, error) {
	snapshot, err := sm.Capture(ctx, userID)
	if err != nil {
		return RoleSnapshot{}, err
	}
	if err := sm.snapshots.Put(ctx, sessionID, snapshot); err != nil {
		return RoleSnapshot{}, err
	}
	return snapshot, nil
}

// Snapshot returns the snapshot of a session. It fails with ErrNoSession when
// the session is unknown or expired.
func (sm *SessionManager) Snapshot(ctx context.Context, sessionID string) (RoleSnapshot, error) {
	s, err := sm.snapshots.Get(ctx, sessionID)
	if err != nil {
		return RoleSnapshot{}, err
	}
	if s == nil {
		return RoleSnapshot{}, NewError(ErrNoSession, "session not found")
	}
	return *s, nil
}

// Refresh captures a new snapshot for an existing session, picking up role
// and library changes made since it was captured.
func (sm *SessionManager) Refresh(ctx context.Context, sessionID string) (RoleSnapshot, error) {
	current, err := sm.Snapshot(ctx, sessionID)
	if err != nil {
		return RoleSnapshot{}, err
	}
	return sm.Login(ctx, sessionID, current.UserID)
}

// Logout ends a session.
func (sm *SessionManager) Logout(ctx context.Context, sessionID string) error {
	return sm.snapshots.Delete(ctx, sessionID)
}
