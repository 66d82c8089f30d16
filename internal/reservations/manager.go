// Package reservations mirrors the user's reservations from the remote gateway
// and drives payment hand-off.
//
// The remote side is authoritative for status. The manager only ever replaces
// its snapshot with a fetched one; no local action, successful or failed,
// changes a reservation's status.
package reservations

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/errors"
	"github.com/listenupapp/sortir/internal/gateway"
	"github.com/listenupapp/sortir/internal/payment"
	"github.com/listenupapp/sortir/internal/sse"
)

// Gateway is the subset of the remote gateway the manager uses.
type Gateway interface {
	ListReservations(ctx context.Context) ([]domain.ReservationRecord, error)
	CreatePaymentSession(ctx context.Context, reservationID int64) (string, error)
}

// Snapshot is the last applied fetch result.
// Stale is set when a later fetch failed; Records then still hold the last good data.
type Snapshot struct {
	FetchedAt time.Time                  `json:"fetched_at"`
	LastError string                     `json:"last_error,omitempty"`
	Records   []domain.ReservationRecord `json:"records"`
	Sequence  uint64                     `json:"sequence"`
	Stale     bool                       `json:"stale"`
}

// Ticket tags one fetch with its sequence number.
type Ticket struct {
	seq uint64
}

// Sequence returns the ticket's sequence number.
func (t Ticket) Sequence() uint64 { return t.seq }

// PaymentHandle describes a payment hand-off awaiting remote confirmation.
type PaymentHandle struct {
	StartedAt     time.Time `json:"started_at"`
	SessionID     string    `json:"session_id"`
	ReservationID int64     `json:"reservation_id"`
}

// Manager is the reservation lifecycle manager.
type Manager struct {
	gateway  Gateway
	frontEnd payment.FrontEnd
	emitter  sse.Emitter
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	issued   uint64
	applied  uint64
	snapshot Snapshot
	pending  map[int64]PaymentHandle
}

// New creates a Manager with an empty snapshot.
func New(gw Gateway, frontEnd payment.FrontEnd, emitter sse.Emitter, logger *slog.Logger) *Manager {
	if emitter == nil {
		emitter = sse.NoopEmitter{}
	}
	return &Manager{
		gateway:  gw,
		frontEnd: frontEnd,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
		snapshot: Snapshot{Records: []domain.ReservationRecord{}},
		pending:  make(map[int64]PaymentHandle),
	}
}

// Begin issues the next sequence number for a fetch.
func (m *Manager) Begin() Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return Ticket{seq: m.issued}
}

// Apply records the outcome of the fetch tagged by t.
// A result older than the most recently applied one is discarded.
// A failure never replaces records: it marks the current snapshot stale
// unless a newer fetch has already been applied, and it still counts as the
// newest result so an older success arriving later is discarded.
// Apply reports whether records became the new snapshot.
func (m *Manager) Apply(t Ticket, records []domain.ReservationRecord, fetchErr error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.seq < m.applied {
		m.logger.Debug("discarding out-of-order fetch result",
			slog.Uint64("sequence", t.seq),
			slog.Uint64("applied", m.applied))
		return false
	}

	if fetchErr != nil {
		m.applied = t.seq
		m.snapshot.Stale = true
		m.snapshot.LastError = fetchErr.Error()
		m.emitter.Emit(sse.NewReservationsStaleEvent(t.seq, fetchErr))
		return false
	}

	sorted := sortBySchedule(records)
	m.warnIllegalTransitions(sorted)

	m.applied = t.seq
	m.snapshot = Snapshot{
		Records:   sorted,
		Sequence:  t.seq,
		FetchedAt: m.now(),
	}
	m.settlePayments(sorted)

	m.emitter.Emit(sse.NewReservationsUpdatedEvent(t.seq, len(sorted), m.snapshot.FetchedAt))
	return true
}

// FetchMine fetches the user's reservations and applies them as the new snapshot.
// On failure the previous snapshot is kept, marked stale, and returned with the error.
// A result overtaken by a newer fetch is dropped and the newer snapshot is returned.
// There is no automatic retry.
func (m *Manager) FetchMine(ctx context.Context) (Snapshot, error) {
	t := m.Begin()

	records, err := m.gateway.ListReservations(ctx)
	if err != nil {
		wrapped := errors.Wrap(err, fetchCode(err), "fetch reservations")
		m.logger.Warn("reservation fetch failed",
			slog.Uint64("sequence", t.seq),
			slog.String("error", err.Error()))
		m.Apply(t, nil, wrapped)
		return m.Snapshot(), wrapped
	}

	m.Apply(t, records, nil)
	return m.Snapshot(), nil
}

// fetchCode keeps credential problems distinct; anything else the gateway says
// about a list call means the remote could not serve it.
func fetchCode(err error) errors.Code {
	switch code := gateway.Code(err); code {
	case errors.CodeAuthRequired, errors.CodeUnauthorized:
		return code
	default:
		return errors.CodeRemoteUnavailable
	}
}

// Snapshot returns a copy of the last applied snapshot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.Records = slices.Clone(m.snapshot.Records)
	return s
}

// All returns every record of the last snapshot, sorted by ScheduledAt.
func (m *Manager) All() []domain.ReservationRecord {
	return m.Snapshot().Records
}

// Upcoming returns the records of the last snapshot scheduled at or after now.
func (m *Manager) Upcoming(now time.Time) []domain.ReservationRecord {
	return Classify(m.All(), now).Upcoming
}

// Past returns the records of the last snapshot scheduled before now.
func (m *Manager) Past(now time.Time) []domain.ReservationRecord {
	return Classify(m.All(), now).Past
}

// InitiatePayment requests a payment session for a pending reservation and
// hands it to the payment front-end. It never changes local status.
//
// The reservation must be in the last snapshot (NOT_FOUND otherwise) and be
// pending there (INVALID_STATE otherwise); neither case reaches the gateway.
func (m *Manager) InitiatePayment(ctx context.Context, reservationID int64) (PaymentHandle, error) {
	rec, ok := m.find(reservationID)
	if !ok {
		return PaymentHandle{}, errors.NotFoundf("reservation %d not in last snapshot", reservationID)
	}
	if rec.Status != domain.StatusPending {
		return PaymentHandle{}, errors.InvalidStatef("reservation %d is %s, not pending", reservationID, rec.Status)
	}

	sessionID, err := m.gateway.CreatePaymentSession(ctx, reservationID)
	if err != nil {
		m.logger.Warn("payment session request failed",
			slog.Int64("reservation_id", reservationID),
			slog.String("error", err.Error()))
		return PaymentHandle{}, errors.Wrap(err, gateway.Code(err), "create payment session")
	}

	session := payment.Session{SessionID: sessionID, ReservationID: reservationID}
	if err := m.frontEnd.Open(ctx, session); err != nil {
		return PaymentHandle{}, errors.Wrap(err, errors.CodeRemoteUnavailable, "open payment front-end")
	}

	handle := PaymentHandle{ReservationID: reservationID, SessionID: sessionID, StartedAt: m.now()}
	m.mu.Lock()
	m.pending[reservationID] = handle
	m.mu.Unlock()

	m.emitter.Emit(sse.NewPaymentInitiatedEvent(reservationID, sessionID))
	return handle, nil
}

// PendingPayments lists hand-offs not yet settled by a later snapshot, oldest first.
func (m *Manager) PendingPayments() []PaymentHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PaymentHandle, 0, len(m.pending))
	for _, h := range m.pending {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b PaymentHandle) int {
		return cmp.Or(a.StartedAt.Compare(b.StartedAt), cmp.Compare(a.ReservationID, b.ReservationID))
	})
	return out
}

// HandleStatusChange reacts to a push notification by re-fetching.
// The payload is a hint only and is never applied directly.
func (m *Manager) HandleStatusChange(ctx context.Context, change domain.StatusChange) error {
	m.logger.Info("status change pushed, refetching",
		slog.Int64("reservation_id", change.ReservationID),
		slog.String("status", string(change.Status)))
	_, err := m.FetchMine(ctx)
	return err
}

func (m *Manager) find(reservationID int64) (domain.ReservationRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.snapshot.Records {
		if r.ID == reservationID {
			return r, true
		}
	}
	return domain.ReservationRecord{}, false
}

// warnIllegalTransitions logs records whose status moved in a way the
// lifecycle does not allow. The remote value is still applied. Callers hold m.mu.
func (m *Manager) warnIllegalTransitions(next []domain.ReservationRecord) {
	prev := make(map[int64]domain.ReservationStatus, len(m.snapshot.Records))
	for _, r := range m.snapshot.Records {
		prev[r.ID] = r.Status
	}
	for _, r := range next {
		if old, ok := prev[r.ID]; ok && !old.CanTransitionTo(r.Status) {
			m.logger.Warn("remote reported illegal status transition",
				slog.Int64("reservation_id", r.ID),
				slog.String("from", string(old)),
				slog.String("to", string(r.Status)))
		}
	}
}

// settlePayments drops pending hand-offs whose reservation is no longer pending. Callers hold m.mu.
func (m *Manager) settlePayments(records []domain.ReservationRecord) {
	if len(m.pending) == 0 {
		return
	}
	status := make(map[int64]domain.ReservationStatus, len(records))
	for _, r := range records {
		status[r.ID] = r.Status
	}
	for id := range m.pending {
		if s, ok := status[id]; !ok || s != domain.StatusPending {
			m.logger.Info("payment hand-off settled",
				slog.Int64("reservation_id", id),
				slog.String("status", string(s)))
			delete(m.pending, id)
		}
	}
}

func sortBySchedule(records []domain.ReservationRecord) []domain.ReservationRecord {
	sorted := slices.Clone(records)
	if sorted == nil {
		sorted = []domain.ReservationRecord{}
	}
	slices.SortStableFunc(sorted, func(a, b domain.ReservationRecord) int {
		return cmp.Or(a.ScheduledAt.Compare(b.ScheduledAt), cmp.Compare(a.ID, b.ID))
	})
	return sorted
}
