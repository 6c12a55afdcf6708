// Package session persists the signed-in user's credential and profile and
// repairs corrupted state before anything reads it.
//
// The token and profile are stored under the "token" and "user" keys. The
// pair is atomic: after BootstrapIntegrityCheck the store holds either a
// parseable profile with its token, or nothing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// ErrEmptyToken is returned by SetSession when the credential is empty.
var ErrEmptyToken = errors.New("session token is empty")

// Eviction causes.
const (
	CauseLogout       = "logout"
	CauseUnauthorized = "unauthorized"
)

// Store is the single source of truth for who is signed in.
type Store struct {
	mu             sync.RWMutex
	storage        Storage
	logger         *logging.Logger
	validateExpiry bool
	now            func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for repair and parse warnings.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithExpiryValidation makes the bootstrap check drop JWTs whose exp claim
// has passed.
func WithExpiryValidation(enabled bool) Option {
	return func(s *Store) { s.validateExpiry = enabled }
}

// WithClock overrides the time source for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps storage.
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Action is what the bootstrap check did to the stored session.
type Action string

const (
	ActionNone         Action = "none"
	ActionClearedToken Action = "cleared_token"
	ActionClearedUser  Action = "cleared_user"
	ActionClearedBoth  Action = "cleared_session"
	ActionClearedAll   Action = "cleared_storage"
)

// Reason explains a repair.
type Reason string

const (
	ReasonLiteralUser      Reason = "literal_user"
	ReasonTokenWithoutUser Reason = "token_without_user"
	ReasonUnparseableUser  Reason = "unparseable_user"
	ReasonUserWithoutToken Reason = "user_without_token"
	ReasonExpiredToken     Reason = "expired_token"
	ReasonStorageError     Reason = "storage_error"
)

// Report describes the outcome of BootstrapIntegrityCheck.
type Report struct {
	Action Action
	Reason Reason
	Err    error
}

// Repaired reports whether the check changed stored state.
func (r Report) Repaired() bool {
	return r.Action != ActionNone
}

// BootstrapIntegrityCheck validates the stored session and repairs it. It
// must finish before any view reads the session. It never fails; storage
// errors lead to a full clear.
func (s *Store) BootstrapIntegrityCheck(ctx context.Context) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.bootstrap()
	if err != nil {
		s.logger.Error(ctx, "session storage unreadable, resetting", zap.Error(err))
		report = Report{Action: ActionClearedAll, Reason: ReasonStorageError, Err: err}
		if clearErr := s.storage.Clear(); clearErr != nil {
			s.logger.Error(ctx, "failed to reset session storage", zap.Error(clearErr))
			report.Err = errors.Join(err, clearErr)
		}
	}

	if report.Repaired() {
		RepairsTotal.WithLabelValues(string(report.Reason)).Inc()
		s.logger.Warn(ctx, "session storage repaired",
			zap.String("action", string(report.Action)),
			zap.String("reason", string(report.Reason)),
		)
	}
	return report
}

func (s *Store) bootstrap() (Report, error) {
	var report Report
	err := s.storage.Update(func(tx Tx) error {
		user, hasUser := tx.Get(KeyUser)
		token, hasToken := tx.Get(KeyToken)

		switch {
		case hasUser && isLiteralCorrupt(user):
			report = s.clearBoth(tx, hasToken, ReasonLiteralUser)
			return nil
		case !hasUser && hasToken:
			tx.Remove(KeyToken)
			report = Report{Action: ActionClearedToken, Reason: ReasonTokenWithoutUser}
			return nil
		case !hasUser:
			report = Report{Action: ActionNone}
			return nil
		}

		if _, err := parseProfile(user); err != nil {
			report = s.clearBoth(tx, hasToken, ReasonUnparseableUser)
			return nil
		}
		if !hasToken || token == "" {
			tx.Remove(KeyUser)
			tx.Remove(KeyToken)
			report = Report{Action: ActionClearedUser, Reason: ReasonUserWithoutToken}
			return nil
		}
		if s.validateExpiry && tokenExpired(token, s.now()) {
			report = s.clearBoth(tx, true, ReasonExpiredToken)
			return nil
		}

		report = Report{Action: ActionNone}
		return nil
	})
	return report, err
}

func (s *Store) clearBoth(tx Tx, hadToken bool, reason Reason) Report {
	tx.Remove(KeyUser)
	tx.Remove(KeyToken)
	action := ActionClearedUser
	if hadToken {
		action = ActionClearedBoth
	}
	return Report{Action: action, Reason: reason}
}

// ReadUser returns the stored profile, or tracker.DefaultProfile when it
// is absent or unusable. It never fails.
func (s *Store) ReadUser() tracker.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	raw, ok, err := s.storage.Get(KeyUser)
	switch {
	case err != nil:
		s.logger.Warn(ctx, "failed to read stored user, using default", zap.Error(err))
		return tracker.DefaultProfile()
	case !ok:
		return tracker.DefaultProfile()
	case isLiteralCorrupt(raw):
		s.logger.Warn(ctx, "corrupted user data, using default", zap.String("value", raw))
		return tracker.DefaultProfile()
	}

	profile, err := parseProfile(raw)
	if err != nil {
		s.logger.Warn(ctx, "unparseable user data, using default", zap.Error(err))
		return tracker.DefaultProfile()
	}
	return profile
}

// SetSession stores token and user together.
func (s *Store) SetSession(token string, user tracker.UserProfile) error {
	if token == "" {
		return ErrEmptyToken
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.storage.Update(func(tx Tx) error {
		tx.Set(KeyToken, token)
		tx.Set(KeyUser, string(raw))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Token returns the stored credential. Read errors count as absent.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok, err := s.storage.Get(KeyToken)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to read stored token", zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// ClearSession removes the token and user.
func (s *Store) ClearSession() error {
	return s.Evict(CauseLogout)
}

// Evict removes the token and user and records why.
func (s *Store) Evict(cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.storage.Update(func(tx Tx) error {
		tx.Remove(KeyToken)
		tx.Remove(KeyUser)
		return nil
	})
	if err != nil {
		// The pair must not survive; drop everything.
		if clearErr := s.storage.Clear(); clearErr != nil {
			return fmt.Errorf("failed to clear session: %w", errors.Join(err, clearErr))
		}
	}
	EvictionsTotal.WithLabelValues(cause).Inc()
	return nil
}

// Current returns the token and profile pair, or the empty session when
// either half is missing or unusable.
func (s *Store) Current() tracker.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, hasToken, err := s.storage.Get(KeyToken)
	if err != nil || !hasToken || token == "" {
		return tracker.Session{}
	}
	raw, hasUser, err := s.storage.Get(KeyUser)
	if err != nil || !hasUser || isLiteralCorrupt(raw) {
		return tracker.Session{}
	}
	profile, err := parseProfile(raw)
	if err != nil {
		return tracker.Session{}
	}
	return tracker.Session{Token: token, User: &profile}
}

func isLiteralCorrupt(raw string) bool {
	return raw == "undefined" || raw == "null" || raw == ""
}

// storedUser accepts a bare profile or the full login payload
// {"token": ..., "user": {...}}.
type storedUser struct {
	tracker.UserProfile
	User *tracker.UserProfile `json:"user,omitempty"`
}

func parseProfile(raw string) (tracker.UserProfile, error) {
	var su storedUser
	if err := json.Unmarshal([]byte(raw), &su); err != nil {
		return tracker.UserProfile{}, err
	}
	if su.User != nil {
		return *su.User, nil
	}
	return su.UserProfile, nil
}

// tokenExpired reports whether token is a JWT whose exp claim is before
// now. The signature is not checked; opaque tokens are never expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
