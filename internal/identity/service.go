package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zh-portal/zh_portal/internal/password"
)

const signupWindow = 7 * 24 * time.Hour

// timingGuard is hashed once and compared against on unknown logins so a
// miss costs about as much as a wrong password.
const timingGuard = "zh-portal-timing-guard"

// Service manages the account lifecycle on top of a Store.
type Service struct {
	store    Store
	hasher   password.Hasher
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	// mu serializes every Load..Save sequence so uniqueness checks never run
	// against a stale snapshot.
	mu sync.Mutex

	guardOnce sync.Once
	guardHash string
}

// NewService creates a new identity service.
func NewService(store Store, hasher password.Hasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Register creates an account. No token is issued; callers log in separately.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return User{}, validationError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return User{}, fmt.Errorf("%w: password is too long", ErrValidation)
		}
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if sameIdentity(u.Username, in.Username) {
			return User{}, ErrUsernameTaken
		}
	}
	for _, u := range users {
		if sameIdentity(u.Email, in.Email) {
			return User{}, ErrEmailTaken
		}
	}

	user := User{
		ID:           s.newID(),
		Username:     in.Username,
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Save(ctx, append(users, user)); err != nil {
		return User{}, err
	}

	s.logger.Info("identity.register completed", slog.String("user_id", user.ID))
	return user, nil
}

// Authenticate finds the account whose username or email matches login,
// ignoring case, and checks the password against it.
func (s *Service) Authenticate(ctx context.Context, login, plaintext string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" || plaintext == "" {
		return User{}, fmt.Errorf("%w: user and password are required", ErrValidation)
	}

	users, err := s.store.Load(ctx)
	if err != nil {
		return User{}, err
	}

	for _, u := range users {
		if sameIdentity(u.Username, login) || sameIdentity(u.Email, login) {
			if !s.hasher.Verify(plaintext, u.PasswordHash) {
				return User{}, ErrInvalidCredentials
			}
			return u, nil
		}
	}

	s.hasher.Verify(plaintext, s.timingGuard())
	return User{}, ErrUserNotFound
}

// Import merges records into the store. Records without a username and
// email, or colliding with an existing identity, are skipped. Everything
// accepted is persisted with a single Save.
func (s *Service) Import(ctx context.Context, records []ImportRecord) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	ids := make(map[string]struct{}, len(users)+len(records))
	for _, u := range users {
		ids[u.ID] = struct{}{}
	}

	var res ImportResult
	for _, rec := range records {
		username := strings.TrimSpace(rec.Username)
		email := strings.ToLower(strings.TrimSpace(rec.Email))
		if username == "" && email == "" {
			res.Skipped++
			continue
		}
		if taken(users, username, email) {
			res.Skipped++
			continue
		}

		hash := rec.PasswordHash
		if hash == "" && rec.Password != "" {
			hash, err = s.hasher.Hash(rec.Password)
			if err != nil {
				s.logger.Warn("identity.import skipped record", slog.String("username", username), slog.Any("error", err))
				res.Skipped++
				continue
			}
		}

		id := strings.TrimSpace(rec.ID)
		if _, dup := ids[id]; id == "" || dup {
			id = s.newID()
		}
		ids[id] = struct{}{}

		createdAt, ok := parseCreatedAt(rec.CreatedAt)
		if !ok {
			createdAt = s.now()
		}

		users = append(users, User{
			ID:           id,
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    createdAt.UTC(),
		})
		res.Imported++
	}

	if res.Imported == 0 {
		return res, nil
	}
	if err := s.store.Save(ctx, users); err != nil {
		return ImportResult{}, err
	}

	s.logger.Info("identity.import completed", slog.Int("imported", res.Imported), slog.Int("skipped", res.Skipped))
	return res, nil
}

// List returns every account with password hashes stripped.
func (s *Service) List(ctx context.Context) ([]PublicUser, error) {
	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return publicUsers(users), nil
}

// FindByID returns the account with the given id.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	users, err := s.store.Load(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// Stats counts all accounts and those created within the last seven days.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	users, err := s.store.Load(ctx)
	if err != nil {
		return Stats{}, err
	}
	now := s.now().UTC()
	cutoff := now.Add(-signupWindow)

	stats := Stats{ActiveUsers: len(users), ServerTime: now}
	for _, u := range users {
		if u.CreatedAt.After(cutoff) {
			stats.Signups7d++
		}
	}
	return stats, nil
}

func (s *Service) timingGuard() string {
	s.guardOnce.Do(func() {
		s.guardHash, _ = s.hasher.Hash(timingGuard)
	})
	return s.guardHash
}

func taken(users []User, username, email string) bool {
	for _, u := range users {
		if sameIdentity(u.Email, email) || sameIdentity(u.Username, username) {
			return true
		}
	}
	return false
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, field+" is too long")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}
