package store

import (
	"context"
	"sort"
	"sync"

	"trackitnow-backend/internal/types"
)

// MemoryDocumentStore is the in-process DocumentStore used when no database is
// configured, and by tests.
type MemoryDocumentStore struct {
	mu            sync.RWMutex
	users         []types.User
	parcels       []types.Parcel
	notifications map[string]types.Notification
}

var _ DocumentStore = (*MemoryDocumentStore)(nil)

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{notifications: make(map[string]types.Notification)}
}

func (m *MemoryDocumentStore) AddUser(u types.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
}

func (m *MemoryDocumentStore) AddParcel(p types.Parcel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parcels = append(m.parcels, p)
}

func (m *MemoryDocumentStore) CountUsers(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryDocumentStore) FindUsersByRole(_ context.Context, role string) ([]types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryDocumentStore) CountParcels(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.parcels)), nil
}

func (m *MemoryDocumentStore) FindParcelByCode(_ context.Context, code string) (*types.Parcel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.parcels {
		if p.TrackingCode == code {
			cp := p
			cp.History = append([]types.HistoryEntry(nil), p.History...)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDocumentStore) CountParcelsByStatus(context.Context) ([]types.StatusCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int64{}
	for _, p := range m.parcels {
		counts[p.Status]++
	}
	out := make([]types.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, types.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

func (m *MemoryDocumentStore) RecentParcels(_ context.Context, limit int) ([]types.Parcel, error) {
	m.mu.RLock()
	out := make([]types.Parcel, len(m.parcels))
	for i, p := range m.parcels {
		out[i] = p
		out[i].History = append([]types.HistoryEntry(nil), p.History...)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryDocumentStore) CreateNotifications(_ context.Context, ns ...types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range ns {
		m.notifications[n.ID] = n
	}
	return nil
}

func (m *MemoryDocumentStore) ListNotifications(_ context.Context, userID string, limit int) ([]types.Notification, error) {
	m.mu.RLock()
	out := []types.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryDocumentStore) MarkNotificationRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Read = true
	m.notifications[id] = n
	return nil
}

func (m *MemoryDocumentStore) DeleteNotification(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[id]; !ok {
		return ErrNotFound
	}
	delete(m.notifications, id)
	return nil
}

func (m *MemoryDocumentStore) DeleteNotificationsForParcel(_ context.Context, parcelID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, notif := range m.notifications {
		if notif.ParcelID == parcelID {
			delete(m.notifications, id)
			n++
		}
	}
	return n, nil
}
