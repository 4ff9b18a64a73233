package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/zh-portal/zh_portal/internal/identity"
)

// Authenticator checks credentials against the account store.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (identity.User, error)
}

// Service turns successful authentication into a signed session token.
type Service struct {
	tokens   *Tokens
	accounts Authenticator
	logger   *slog.Logger
}

// NewService wires token issuance to an account lookup. A nil logger falls
// back to slog.Default.
func NewService(tokens *Tokens, accounts Authenticator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tokens: tokens, accounts: accounts, logger: logger}
}

// Session is the result of a successful login.
type Session struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	User      identity.PublicUser `json:"user"`
}

// Login validates credentials (by delegating to the Authenticator) and issues a token.
func (s *Service) Login(ctx context.Context, login, password string) (Session, error) {
	user, err := s.accounts.Authenticate(ctx, login, password)
	if err != nil {
		s.logger.Info("auth.login rejected", slog.Any("error", err))
		return Session{}, err
	}
	token, exp, err := s.tokens.Issue(Subject{ID: user.ID, Username: user.Username, Email: user.Email})
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("auth.login completed", slog.String("user_id", user.ID))
	return Session{Token: token, ExpiresAt: exp.UTC(), User: user.Public()}, nil
}

// Verify validates a presented token.
func (s *Service) Verify(token string) (Claims, error) {
	return s.tokens.Verify(token)
}
