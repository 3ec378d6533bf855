package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

type memMotorcycles struct {
	mu   sync.Mutex
	rows map[string]domain.Motorcycle
}

func newMemMotorcycles(seed ...domain.Motorcycle) *memMotorcycles {
	m := &memMotorcycles{rows: map[string]domain.Motorcycle{}}
	for _, s := range seed {
		m.rows[s.PlateNumber] = s
	}
	return m
}

func (m *memMotorcycles) EnsureIndexes(context.Context) error { return nil }

func (m *memMotorcycles) Create(_ context.Context, mc *domain.Motorcycle) (*domain.Motorcycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[mc.PlateNumber]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	mc.CreatedAt = time.Now().UTC()
	mc.UpdatedAt = mc.CreatedAt
	m.rows[mc.PlateNumber] = *mc
	return mc, nil
}

func (m *memMotorcycles) FindByPlate(_ context.Context, plate string) (*domain.Motorcycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[plate]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memMotorcycles) List(_ context.Context, f domain.MotorcycleFilterDTO) ([]domain.Motorcycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Motorcycle{}
	for _, row := range m.rows {
		if f.Region != "" && row.Region != f.Region {
			continue
		}
		if f.Blacklisted != nil && row.Blacklisted != *f.Blacklisted {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlateNumber < out[j].PlateNumber })
	return out, nil
}

func (m *memMotorcycles) update(plate string, fn func(*domain.Motorcycle)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[plate]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&row)
	m.rows[plate] = row
	return nil
}

func (m *memMotorcycles) SetFlag(_ context.Context, plate string, flag domain.StatusFlag, v bool) error {
	return m.update(plate, func(row *domain.Motorcycle) {
		switch flag {
		case domain.FlagBlacklisted:
			row.Blacklisted = v
		case domain.FlagExpired:
			row.Expired = v
		case domain.FlagViolations:
			row.Violations = v
		}
	})
}

func (m *memMotorcycles) ClearStatuses(_ context.Context, plate string) error {
	return m.update(plate, func(row *domain.Motorcycle) {
		row.Blacklisted, row.Expired, row.Violations = false, false, false
	})
}

func (m *memMotorcycles) TouchLastSeen(_ context.Context, plate string, at time.Time) error {
	return m.update(plate, func(row *domain.Motorcycle) { row.LastSeenAt = &at })
}

func (m *memMotorcycles) Delete(_ context.Context, plate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[plate]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, plate)
	return nil
}

type memScanEvents struct {
	events []domain.ScanEvent
}

func (m *memScanEvents) Create(_ context.Context, e *domain.ScanEvent) error {
	m.events = append(m.events, *e)
	return nil
}

func (m *memScanEvents) ListRecent(_ context.Context, f domain.ScanEventFilterDTO) ([]domain.ScanEvent, error) {
	var out []domain.ScanEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if f.Plate == "" || m.events[i].DetectedPlate == f.Plate {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *memScanEvents) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type memUsers struct {
	users map[string]domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if m.users == nil {
		m.users = map[string]domain.User{}
	}
	if _, ok := m.users[u.Username]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	u.ID = strconv.Itoa(len(m.users) + 1)
	m.users[u.Username] = *u
	return u, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeRecognizer struct {
	blocks []domain.TextBlock
	err    error
	calls  int
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(context.Context, []byte) ([]domain.TextBlock, error) {
	f.calls++
	return f.blocks, f.err
}

type memArchive struct {
	keys []string
	err  error
}

func (m *memArchive) Save(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.keys = append(m.keys, key)
	return "mem://" + key, nil
}

type recordingAlerts struct {
	alerts []domain.Alert
}

func (r *recordingAlerts) PublishAlert(_ context.Context, a domain.Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

type recordingBroadcaster struct {
	notes []domain.ScanNotification
}

func (r *recordingBroadcaster) BroadcastScan(n domain.ScanNotification) {
	r.notes = append(r.notes, n)
}
