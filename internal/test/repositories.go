package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[string]*model.User
	ByID  map[int64]*model.User
	Next  int64
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[int64]*model.User),
		Next:  1,
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, login, passwordHash string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[int64]*model.User)
	}
	if _, exists := s.Users[login]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if s.Next == 0 {
		s.Next = 1
	}
	user := &model.User{ID: s.Next, Login: login, PasswordHash: passwordHash}
	s.Next++
	s.Users[login] = user
	s.ByID[user.ID] = user
	return user, nil
}

// GetByLogin fetches user by login or returns not found.
func (s *UserRepositoryStub) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[login]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

type refundKey struct {
	userID  int64
	taxYear int
}

// RefundRepositoryStub keeps refund records in-memory; Fn overrides take precedence.
type RefundRepositoryStub struct {
	GetFn    func(context.Context, int64, int) (*model.RefundRecord, error)
	SaveFn   func(context.Context, *model.RefundRecord) error
	ClaimFn  func(context.Context, time.Time, int) ([]model.RefundRecord, error)
	UpdateFn func(context.Context, int64, *time.Time) error

	mu      sync.Mutex
	records map[refundKey]model.RefundRecord
	nextID  int64
	Saved   []model.RefundRecord
	Updates []EstimateUpdateCall
}

// EstimateUpdateCall captures UpdateEstimate arguments.
type EstimateUpdateCall struct {
	RecordID    int64
	AvailableAt *time.Time
}

// Put stores record as if it had been saved before.
func (s *RefundRepositoryStub) Put(record model.RefundRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[refundKey]model.RefundRecord)
	}
	if record.ID == 0 {
		s.nextID++
		record.ID = s.nextID
	}
	s.records[refundKey{record.UserID, record.TaxYear}] = record
}

// GetByUserAndYear returns stored record or not found.
func (s *RefundRepositoryStub) GetByUserAndYear(ctx context.Context, userID int64, taxYear int) (*model.RefundRecord, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, userID, taxYear)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[refundKey{userID, taxYear}]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &record, nil
}

// Save upserts record and assigns an identifier to new ones.
func (s *RefundRepositoryStub) Save(ctx context.Context, record *model.RefundRecord) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, record)
	}
	s.mu.Lock()
	if s.records == nil {
		s.records = make(map[refundKey]model.RefundRecord)
	}
	if existing, ok := s.records[refundKey{record.UserID, record.TaxYear}]; ok {
		record.ID = existing.ID
	} else if record.ID == 0 {
		s.nextID++
		record.ID = s.nextID
	}
	s.records[refundKey{record.UserID, record.TaxYear}] = *record
	s.Saved = append(s.Saved, *record)
	s.mu.Unlock()
	return nil
}

// ClaimStaleEstimates returns configured batch.
func (s *RefundRepositoryStub) ClaimStaleEstimates(ctx context.Context, staleBefore time.Time, limit int) ([]model.RefundRecord, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, staleBefore, limit)
	}
	return nil, nil
}

// UpdateEstimate records invocation.
func (s *RefundRepositoryStub) UpdateEstimate(ctx context.Context, recordID int64, availableAt *time.Time) error {
	s.mu.Lock()
	s.Updates = append(s.Updates, EstimateUpdateCall{RecordID: recordID, AvailableAt: availableAt})
	s.mu.Unlock()
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, recordID, availableAt)
	}
	return nil
}

// AuditRepositoryStub collects audit entries.
type AuditRepositoryStub struct {
	mu      sync.Mutex
	Entries []model.AccessAudit
	Err     error
	ListFn  func(context.Context, int64, int) ([]model.AccessAudit, error)
}

// Record stores entry unless configured to fail.
func (s *AuditRepositoryStub) Record(ctx context.Context, entry model.AccessAudit) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	s.Entries = append(s.Entries, entry)
	s.mu.Unlock()
	return nil
}

// ListByUser returns stored entries for user, newest first.
func (s *AuditRepositoryStub) ListByUser(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, userID, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AccessAudit
	for i := len(s.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.Entries[i].UserID == userID {
			out = append(out, s.Entries[i])
		}
	}
	return out, nil
}

// Recorded returns a copy of stored entries.
func (s *AuditRepositoryStub) Recorded() []model.AccessAudit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AccessAudit, len(s.Entries))
	copy(out, s.Entries)
	return out
}

// RefundCacheStub is an in-memory cache with injectable failures.
type RefundCacheStub struct {
	mu      sync.Mutex
	Views   map[int64]model.RefundView
	GetErr  error
	SetErr  error
	DelErr  error
	Deleted []int64
}

// Get returns cached view when present.
func (s *RefundCacheStub) Get(ctx context.Context, userID int64) (*model.RefundView, bool, error) {
	if s.GetErr != nil {
		return nil, false, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.Views[userID]
	if !ok {
		return nil, false, nil
	}
	return &view, true, nil
}

// Set stores view.
func (s *RefundCacheStub) Set(ctx context.Context, userID int64, view *model.RefundView) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Views == nil {
		s.Views = make(map[int64]model.RefundView)
	}
	s.Views[userID] = *view
	return nil
}

// Delete drops cached view and records the call.
func (s *RefundCacheStub) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, userID)
	if s.DelErr != nil {
		return s.DelErr
	}
	delete(s.Views, userID)
	return nil
}

// Cached reports whether a view is stored for user.
func (s *RefundCacheStub) Cached(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Views[userID]
	return ok
}

// IRSProviderStub answers agency lookups via override.
type IRSProviderStub struct {
	MostRecentFn func(context.Context, int64) (*model.IRSResult, error)
	UpsertFn     func(context.Context, int64, model.IRSResult) error
}

// MostRecent delegates to override or returns a received refund for 2025.
func (s IRSProviderStub) MostRecent(ctx context.Context, userID int64) (*model.IRSResult, error) {
	if s.MostRecentFn != nil {
		return s.MostRecentFn(ctx, userID)
	}
	return &model.IRSResult{TaxYear: 2025, Status: model.RefundStatusReceived}, nil
}

// Upsert delegates to override.
func (s IRSProviderStub) Upsert(ctx context.Context, userID int64, result model.IRSResult) error {
	if s.UpsertFn != nil {
		return s.UpsertFn(ctx, userID, result)
	}
	return nil
}
