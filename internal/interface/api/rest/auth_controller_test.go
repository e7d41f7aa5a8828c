package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webshare-api/internal/application/ports"
	"webshare-api/internal/application/services"
	"webshare-api/internal/domain/credential"
	"webshare-api/internal/infrastructure/metrics"
	"webshare-api/internal/interface/api/rest/dto/auth"
)

type fakeAuthService struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (bool, error)
	calls            atomic.Int32
}

func (f *fakeAuthService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	f.calls.Add(1)
	if f.AuthenticateFunc == nil {
		return false, errors.New("not used")
	}
	return f.AuthenticateFunc(ctx, username, password)
}

type fakeCredentialRepo struct {
	FetchByUserIDFunc func(ctx context.Context, userID credential.UserID) (*credential.Credential, error)
}

func (f *fakeCredentialRepo) FetchByUserID(ctx context.Context, userID credential.UserID) (*credential.Credential, error) {
	return f.FetchByUserIDFunc(ctx, userID)
}

func newRouterWithController(t *testing.T, as ports.Auth) (*gin.Engine, *AuthController) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	ac := &AuthController{
		logger:      zap.NewNop(),
		authService: as,
		mCounter:    metrics.NewTestCounter(),
	}
	r.POST("/login", ac.LoginHandler)
	return r, ac
}

func doPOST(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var b []byte
	switch v := body.(type) {
	case string:
		b = []byte(v)
	default:
		var err error
		b, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeStatus(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	return got
}

func validLogin() auth.LoginRequest {
	return auth.LoginRequest{
		Username: "fred",
		Password: "fred123",
	}
}

func TestAuthController_LoginHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         any
		authenticate func(ctx context.Context, username, password string) (bool, error)
		wantStatus   int
		wantBody     string
		wantCalls    int32
	}{
		{
			name: "200 matching credentials",
			body: validLogin(),
			authenticate: func(_ context.Context, username, password string) (bool, error) {
				return username == "fred" && password == "fred123", nil
			},
			wantStatus: http.StatusOK,
			wantBody:   StatusOK,
			wantCalls:  1,
		},
		{
			name:         "401 wrong password",
			body:         auth.LoginRequest{Username: "fred", Password: "Fred123"},
			authenticate: func(context.Context, string, string) (bool, error) { return false, nil },
			wantStatus:   http.StatusUnauthorized,
			wantBody:     StatusFail,
			wantCalls:    1,
		},
		{
			name:       "401 empty username never reaches the store",
			body:       auth.LoginRequest{Password: "fred123"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   StatusFail,
		},
		{
			name:       "401 empty password never reaches the store",
			body:       auth.LoginRequest{Username: "fred"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   StatusFail,
		},
		{
			name:       "401 malformed json",
			body:       `{"username":`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   StatusFail,
		},
		{
			name: "500 credential store unreachable",
			body: validLogin(),
			authenticate: func(context.Context, string, string) (bool, error) {
				return false, fmt.Errorf("%w: %w", services.ErrCredentialStore, errors.New("dial tcp: connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   StatusInternalError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			as := &fakeAuthService{AuthenticateFunc: tt.authenticate}
			r, _ := newRouterWithController(t, as)

			rr := doPOST(t, r, "/login", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, map[string]string{"status": tt.wantBody}, decodeStatus(t, rr))
			assert.Equal(t, tt.wantCalls, as.calls.Load())
			assert.NotContains(t, rr.Body.String(), "connection refused")
		})
	}
}

func TestAuthController_LoginHandler_FormBody(t *testing.T) {
	as := &fakeAuthService{AuthenticateFunc: func(_ context.Context, username, password string) (bool, error) {
		return username == "fred" && password == "fred123", nil
	}}
	r, _ := newRouterWithController(t, as)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=fred&password=fred123"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthController_Counters(t *testing.T) {
	as := &fakeAuthService{AuthenticateFunc: func(_ context.Context, _, password string) (bool, error) {
		return password == "fred123", nil
	}}
	r, ac := newRouterWithController(t, as)

	doPOST(t, r, "/login", validLogin())
	doPOST(t, r, "/login", auth.LoginRequest{Username: "fred", Password: "nope"})
	doPOST(t, r, "/login", auth.LoginRequest{})

	assert.Equal(t, float64(1), testutil.ToFloat64(ac.mCounter.WithLabelValues(metrics.LoginSucceeded)))
	assert.Equal(t, float64(2), testutil.ToFloat64(ac.mCounter.WithLabelValues(metrics.LoginRejected)))
}

// The credential store only admits poolSize lookups at a time; more
// concurrent logins than that must queue and all finish.
func TestAuthController_ConcurrentLoginsBeyondPoolSize(t *testing.T) {
	const (
		poolSize = 4
		requests = 5 * poolSize
	)

	pool := make(chan struct{}, poolSize)
	var inFlight, peak atomic.Int32

	repo := &fakeCredentialRepo{FetchByUserIDFunc: func(ctx context.Context, userID credential.UserID) (*credential.Credential, error) {
		select {
		case pool <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func() { <-pool }()

		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(5 * time.Millisecond)
		return &credential.Credential{UserID: userID, Secret: "pw-" + userID}, nil
	}}

	authService := services.NewAuthService(repo, zap.NewNop(), metrics.NewTestCounter(), 5*time.Second)
	r, _ := newRouterWithController(t, authService)

	codes := make([]int, requests)
	var g errgroup.Group
	for i := 0; i < requests; i++ {
		i := i
		g.Go(func() error {
			user := fmt.Sprintf("user%d", i)
			pw := "pw-" + user
			if i%2 == 1 {
				pw = "wrong"
			}
			codes[i] = doPOST(t, r, "/login", auth.LoginRequest{Username: user, Password: pw}).Code
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent logins did not complete")
	}

	for i, code := range codes {
		if i%2 == 1 {
			assert.Equal(t, http.StatusUnauthorized, code, "request %d", i)
		} else {
			assert.Equal(t, http.StatusOK, code, "request %d", i)
		}
	}
	assert.LessOrEqual(t, peak.Load(), int32(poolSize))
	assert.Len(t, pool, 0)
}
