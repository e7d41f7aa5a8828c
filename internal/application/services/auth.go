package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webshare-api/internal/application/ports"
	"webshare-api/internal/domain/credential"
	"webshare-api/internal/infrastructure/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCredentialStore    = errors.New("credential store unavailable")
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

type AuthService struct {
	credentialRepository credential.Repository
	logger               *zap.Logger
	mCounter             *prometheus.CounterVec
	timeout              time.Duration
}

func NewAuthService(
	credentialRepository credential.Repository,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
	timeout time.Duration,
) ports.Auth {
	return &AuthService{
		credentialRepository: credentialRepository,
		logger:               logger,
		mCounter:             mCounter,
		timeout:              timeout,
	}
}

// Authenticate distinguishes "bad credentials" (false, nil) from "store
// unreachable" (false, ErrCredentialStore) so callers can answer 401 or 500.
func (as *AuthService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, as.timeout)
	defer cancel()

	c, err := as.credentialRepository.FetchByUserID(ctx, username)
	if err != nil {
		as.mCounter.WithLabelValues(metrics.CredentialStoreFailed).Inc()
		as.logger.Error("credential lookup failed", zap.String("user_id", username), zap.Error(err))
		return false, fmt.Errorf("%w: %w", ErrCredentialStore, err)
	}
	if c == nil {
		return false, nil
	}

	return verifySecret(c.Secret, password), nil
}

// verifySecret accepts bcrypt hashes and, for rows not migrated yet, plaintext.
func verifySecret(stored, supplied string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
		}
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
