// Package memory provides in-process implementations of the repository
// interfaces. It enforces the same unique and check constraints as the
// Postgres schema and is used when no database is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/repository"
)

// Store holds users, departments and audit entries.
type Store struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	users       map[string]domain.User
	departments map[string]domain.Department
	audit       []domain.AuditEntry
	now         func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		departments: make(map[string]domain.Department),
		now:         time.Now,
	}
}

// Users exposes the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return (*userRepo)(s) }

// Departments exposes the store as a DepartmentRepository.
func (s *Store) Departments() repository.DepartmentRepository { return (*departmentRepo)(s) }

// Audit exposes the store as an AuditRepository.
func (s *Store) Audit() repository.AuditRepository { return (*auditRepo)(s) }

type txKey struct{}

// WithinTx serializes units of work and restores the previous state when
// fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type state struct {
	users       map[string]domain.User
	departments map[string]domain.Department
	audit       []domain.AuditEntry
}

func (s *Store) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := state{
		users:       make(map[string]domain.User, len(s.users)),
		departments: make(map[string]domain.Department, len(s.departments)),
		audit:       append([]domain.AuditEntry(nil), s.audit...),
	}
	for k, v := range s.users {
		st.users[k] = v
	}
	for k, v := range s.departments {
		st.departments[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = st.users
	s.departments = st.departments
	s.audit = st.audit
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUser(user, ""); err != nil {
		return err
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := s.checkUser(user, user.ID); err != nil {
		return err
	}
	user.UpdatedAt = s.now()
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *userRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return (*Store)(r).patchUser(id, func(u *domain.User) {
		at := at
		u.LastLogin = &at
	})
}

func (r *userRepo) UpdatePassword(_ context.Context, id, digest string) error {
	s := (*Store)(r)
	return s.patchUser(id, func(u *domain.User) {
		u.PasswordDigest = digest
		u.UpdatedAt = s.now()
	})
}

// patchUser applies a single-column change to the stored row.
func (s *Store) patchUser(id string, apply func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	apply(&u)
	s.users[id] = cloneUser(u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return (*Store)(r).findUser(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return (*Store)(r).findUser(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepo) GetByEmployeeID(_ context.Context, employeeID string) (*domain.User, error) {
	return (*Store)(r).findUser(func(u domain.User) bool { return u.EmployeeID == employeeID })
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.DepartmentID != nil && (u.DepartmentID == nil || *u.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.AccountStatus != nil && u.AccountStatus != *filter.AccountStatus {
			continue
		}
		result = append(result, cloneUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	offset := filter.Offset
	if offset < 0 || offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) findUser(match func(domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			found := cloneUser(u)
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// checkUser mirrors the users table constraints. Callers hold s.mu.
func (s *Store) checkUser(user *domain.User, selfID string) error {
	for id, existing := range s.users {
		if id == selfID {
			continue
		}
		if existing.Email == user.Email {
			return &repository.ConstraintError{Kind: repository.ConstraintUnique, Constraint: repository.ConstraintUserEmail, Field: "email"}
		}
		if existing.EmployeeID == user.EmployeeID {
			return &repository.ConstraintError{Kind: repository.ConstraintUnique, Constraint: repository.ConstraintUserEmployeeID, Field: "employeeId"}
		}
	}
	if user.Role == domain.RoleHeadOfDepartment && user.DepartmentID != nil {
		return &repository.ConstraintError{Kind: repository.ConstraintCheck, Constraint: repository.ConstraintUserHeadNoMember, Field: "departmentId"}
	}
	return nil
}

type departmentRepo Store

func (r *departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDepartment(dept, ""); err != nil {
		return err
	}
	dept.ID = uuid.NewString()
	dept.CreatedAt = s.now()
	dept.UpdatedAt = dept.CreatedAt
	s.departments[dept.ID] = cloneDepartment(*dept)
	return nil
}

func (r *departmentRepo) Update(_ context.Context, dept *domain.Department) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	if err := s.checkDepartment(dept, dept.ID); err != nil {
		return err
	}
	dept.UpdatedAt = s.now()
	s.departments[dept.ID] = cloneDepartment(*dept)
	return nil
}

func (r *departmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	return (*Store)(r).findDepartment(func(d domain.Department) bool { return d.ID == id })
}

func (r *departmentRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	return (*Store)(r).findDepartment(func(d domain.Department) bool { return d.Name == name })
}

func (r *departmentRepo) GetByCode(_ context.Context, code string) (*domain.Department, error) {
	return (*Store)(r).findDepartment(func(d domain.Department) bool { return d.Code == code })
}

func (r *departmentRepo) GetLedByUser(_ context.Context, userID string) (*domain.Department, error) {
	return (*Store)(r).findDepartment(func(d domain.Department) bool { return d.HeadID != nil && *d.HeadID == userID })
}

func (r *departmentRepo) List(_ context.Context, includeInactive bool) ([]domain.Department, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Department, 0, len(s.departments))
	for _, d := range s.departments {
		if !includeInactive && d.Status != domain.DepartmentStatusActive {
			continue
		}
		result = append(result, cloneDepartment(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) findDepartment(match func(domain.Department) bool) (*domain.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.departments {
		if match(d) {
			found := cloneDepartment(d)
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// checkDepartment mirrors the departments table constraints. Callers hold s.mu.
func (s *Store) checkDepartment(dept *domain.Department, selfID string) error {
	for id, existing := range s.departments {
		if id == selfID {
			continue
		}
		if existing.Name == dept.Name {
			return &repository.ConstraintError{Kind: repository.ConstraintUnique, Constraint: repository.ConstraintDepartmentName, Field: "name"}
		}
		if existing.Code == dept.Code {
			return &repository.ConstraintError{Kind: repository.ConstraintUnique, Constraint: repository.ConstraintDepartmentCode, Field: "code"}
		}
		if dept.HeadID != nil && existing.HeadID != nil && *existing.HeadID == *dept.HeadID {
			return &repository.ConstraintError{Kind: repository.ConstraintUnique, Constraint: repository.ConstraintDepartmentHead, Field: "headId"}
		}
	}
	return nil
}

type auditRepo Store

func (r *auditRepo) Append(_ context.Context, entry *domain.AuditEntry) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, *entry)
	return nil
}

func (r *auditRepo) ListByTarget(_ context.Context, targetID string, limit int) ([]domain.AuditEntry, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	var result []domain.AuditEntry
	for i := len(s.audit) - 1; i >= 0 && len(result) < limit; i-- {
		if s.audit[i].TargetID == targetID {
			result = append(result, s.audit[i])
		}
	}
	return result, nil
}

// AuditEntries returns every recorded entry in insertion order.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEntry(nil), s.audit...)
}

func cloneUser(u domain.User) domain.User {
	if u.DepartmentID != nil {
		id := *u.DepartmentID
		u.DepartmentID = &id
	}
	if u.LastLogin != nil {
		ts := *u.LastLogin
		u.LastLogin = &ts
	}
	return u
}

func cloneDepartment(d domain.Department) domain.Department {
	if d.HeadID != nil {
		id := *d.HeadID
		d.HeadID = &id
	}
	return d
}

var (
	_ repository.UserRepository       = (*userRepo)(nil)
	_ repository.DepartmentRepository = (*departmentRepo)(nil)
	_ repository.AuditRepository      = (*auditRepo)(nil)
	_ repository.TxManager            = (*Store)(nil)
)
