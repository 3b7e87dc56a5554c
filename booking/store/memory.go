// Package store provides booking.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/osengo/booking-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	agencies     map[booking.AgencyID]booking.Agency
	slots        map[booking.SlotID]booking.Slot
	appointments map[booking.AppointmentID]booking.Appointment
	tokens       map[string]booking.Token
}

func NewMemory() *Memory {
	return &Memory{
		agencies:     make(map[booking.AgencyID]booking.Agency),
		slots:        make(map[booking.SlotID]booking.Slot),
		appointments: make(map[booking.AppointmentID]booking.Appointment),
		tokens:       make(map[string]booking.Token),
	}
}

// =============================================================================
// AGENCIES
// =============================================================================

func (m *Memory) SaveAgency(_ context.Context, a booking.Agency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agencies[a.ID] = a
	return nil
}

func (m *Memory) GetAgency(_ context.Context, id booking.AgencyID) (*booking.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agencies[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListAgencies(_ context.Context) ([]booking.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]booking.Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// DeleteAgency removes an agency and its slots. Refused with ErrSlotInUse
// while any of the agency's slots is held by an appointment.
func (m *Memory) DeleteAgency(_ context.Context, id booking.AgencyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agencies[id]; !ok {
		return booking.ErrNotFound
	}
	for _, s := range m.slots {
		if s.AgencyID == id && s.Status == booking.SlotHeld {
			return booking.ErrSlotInUse
		}
	}
	for slotID, s := range m.slots {
		if s.AgencyID == id {
			delete(m.slots, slotID)
		}
	}
	delete(m.agencies, id)
	return nil
}

// =============================================================================
// SLOTS
// =============================================================================

func (m *Memory) SaveSlot(_ context.Context, s booking.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[s.ID] = s
	return nil
}

func (m *Memory) GetSlot(_ context.Context, id booking.SlotID) (*booking.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return &s, nil
}

func (m *Memory) ListSlots(_ context.Context, agencyID booking.AgencyID, onlyOpen bool) ([]booking.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []booking.Slot
	for _, s := range m.slots {
		if s.AgencyID != agencyID {
			continue
		}
		if onlyOpen && s.Status != booking.SlotOpen {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (m *Memory) UpdateSlotStatus(_ context.Context, id booking.SlotID, from, to booking.SlotStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return booking.ErrNotFound
	}
	if s.Status != from {
		return booking.ErrInvalidTransition
	}
	s.Status = to
	m.slots[id] = s
	return nil
}

func (m *Memory) DeleteSlot(_ context.Context, id booking.SlotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return booking.ErrNotFound
	}
	delete(m.slots, id)
	return nil
}

// =============================================================================
// APPOINTMENTS
// =============================================================================

func (m *Memory) SaveAppointment(_ context.Context, a booking.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = a
	return nil
}

func (m *Memory) GetAppointment(_ context.Context, id booking.AppointmentID) (*booking.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListAppointments(_ context.Context, filter booking.AppointmentFilter) ([]booking.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []booking.Appointment
	for _, a := range m.appointments {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.AgencyID != "" {
			slot, ok := m.slots[a.SlotID]
			if !ok || slot.AgencyID != filter.AgencyID {
				continue
			}
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) GetLiveAppointmentBySlot(_ context.Context, slotID booking.SlotID) (*booking.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.appointments {
		if a.SlotID == slotID && !a.Status.IsTerminal() {
			live := a
			return &live, nil
		}
	}
	return nil, booking.ErrNotFound
}

// =============================================================================
// TOKENS
// =============================================================================

func (m *Memory) SaveToken(_ context.Context, t booking.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Value] = t
	return nil
}

func (m *Memory) GetActiveToken(_ context.Context, value string) (*booking.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[value]
	if !ok || !t.Active {
		return nil, booking.ErrInvalidToken
	}
	return &t, nil
}

func (m *Memory) RevokeActiveToken(_ context.Context, id booking.AppointmentID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for value, t := range m.tokens {
		if t.AppointmentID == id && t.Active {
			t.Active = false
			revoked := at
			t.RevokedAt = &revoked
			m.tokens[value] = t
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against the store, restoring a snapshot on error.
// Transactions are serialized; fine for tests and single-process dev use.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(booking.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	agencies     map[booking.AgencyID]booking.Agency
	slots        map[booking.SlotID]booking.Slot
	appointments map[booking.AppointmentID]booking.Appointment
	tokens       map[string]booking.Token
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	s := memorySnapshot{
		agencies:     make(map[booking.AgencyID]booking.Agency, len(tm.agencies)),
		slots:        make(map[booking.SlotID]booking.Slot, len(tm.slots)),
		appointments: make(map[booking.AppointmentID]booking.Appointment, len(tm.appointments)),
		tokens:       make(map[string]booking.Token, len(tm.tokens)),
	}
	for k, v := range tm.agencies {
		s.agencies[k] = v
	}
	for k, v := range tm.slots {
		s.slots[k] = v
	}
	for k, v := range tm.appointments {
		s.appointments[k] = v
	}
	for k, v := range tm.tokens {
		s.tokens[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.agencies = s.agencies
	tm.slots = s.slots
	tm.appointments = s.appointments
	tm.tokens = s.tokens
}
