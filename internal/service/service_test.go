package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mission-service/internal/audit"
	"github.com/spec-kit/mission-service/internal/auth"
	"github.com/spec-kit/mission-service/internal/config"
	"github.com/spec-kit/mission-service/internal/consistency"
	"github.com/spec-kit/mission-service/internal/domain"
	"github.com/spec-kit/mission-service/internal/events"
	"github.com/spec-kit/mission-service/internal/repository"
	"github.com/spec-kit/mission-service/internal/repository/memory"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

var (
	errNoRows = pgx.ErrNoRows

	admin = domain.Identity{ID: "admin-1", Email: "admin@x.com", Role: domain.RoleAdmin, FirstName: "Ada", LastName: "Admin"}
	ctx   = context.Background()
)

type harness struct {
	store  *memory.Store
	hasher auth.PasswordHasher
	auth   *AuthService
	users  *UserService
	depts  *DepartmentService
}

func testConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 24, BcryptCost: 4}}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	return newHarnessWith(t, store, store, consistency.NewEngine(store.Users(), store.Departments()))
}

func newHarnessWith(t *testing.T, store *memory.Store, tx repository.TxManager, rules *consistency.Engine) *harness {
	t.Helper()
	logger := zap.NewNop()
	hasher := auth.NewBcryptHasher(4)
	recorder := audit.NewRecorder(store.Audit())
	dispatcher := events.NewInMemoryDispatcher()
	audit.NewSubscriber(recorder, logger).RegisterHandlers(dispatcher)

	return &harness{
		store:  store,
		hasher: hasher,
		auth: NewAuthService(testConfig(), AuthDependencies{
			UserRepo: store.Users(),
			Hasher:   hasher,
			Recorder: recorder,
			Logger:   logger,
		}),
		users: NewUserService(UserDependencies{
			UserRepo:       store.Users(),
			DepartmentRepo: store.Departments(),
			Rules:          rules,
			TxManager:      tx,
			Hasher:         hasher,
			Dispatcher:     dispatcher,
			Logger:         logger,
		}),
		depts: NewDepartmentService(OrgDependencies{
			DepartmentRepo: store.Departments(),
			Rules:          rules,
			TxManager:      tx,
			Dispatcher:     dispatcher,
			Logger:         logger,
		}),
	}
}

// seedUser stores a user directly, bypassing the service layer.
func (h *harness) seedUser(t *testing.T, email, password string, role domain.Role, departmentID *string) *domain.User {
	t.Helper()
	digest, err := h.hasher.Hash(password)
	require.NoError(t, err)
	u := &domain.User{
		EmployeeID:         "EMP-" + email,
		Email:              email,
		PasswordDigest:     digest,
		FirstName:          "First",
		LastName:           "Last",
		Role:               role,
		DepartmentID:       departmentID,
		AccountStatus:      domain.AccountStatusActive,
		AvailabilityStatus: domain.AvailabilityAvailable,
	}
	require.NoError(t, h.store.Users().Create(ctx, u))
	return u
}

func (h *harness) auditActions() []domain.AuditAction {
	var actions []domain.AuditAction
	for _, e := range h.store.AuditEntries() {
		actions = append(actions, e.Action)
	}
	return actions
}

func requireDomainError(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %T: %v", err, err)
	require.Equal(t, code, domainErr.Code, domainErr.Message)
	return domainErr
}

// passthroughTx runs work without isolation, leaving storage constraints
// as the only guard.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// blindDepartments reports every name and code as free, modelling a
// pre-check that raced with a concurrent insert.
type blindDepartments struct {
	repository.DepartmentRepository
}

func (blindDepartments) GetByName(context.Context, string) (*domain.Department, error) {
	return nil, errNoRows
}

func (blindDepartments) GetByCode(context.Context, string) (*domain.Department, error) {
	return nil, errNoRows
}

var errSerialization = &repository.ConstraintError{Kind: repository.ConstraintSerialization}

// losingTx replays work through RetrySerializable the way the Postgres
// TxManager does. The first `lose` attempts run fn in full and then fail
// their commit; between attempts, afterLoss may write the rows a competing
// transaction committed.
type losingTx struct {
	store     *memory.Store
	lose      int
	attempts  int
	afterLoss func()
}

func (l *losingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return repository.RetrySerializable(ctx, 3, func() error {
		l.attempts++
		lost := l.attempts <= l.lose
		err := l.store.WithinTx(ctx, func(ctx context.Context) error {
			if err := fn(ctx); err != nil {
				return err
			}
			if lost {
				return errSerialization
			}
			return nil
		})
		if lost && l.afterLoss != nil {
			l.afterLoss()
		}
		return err
	})
}

// serializingUsers aborts every id lookup with a serialization failure.
type serializingUsers struct {
	repository.UserRepository
}

func (serializingUsers) GetByID(context.Context, string) (*domain.User, error) {
	return nil, errSerialization
}
