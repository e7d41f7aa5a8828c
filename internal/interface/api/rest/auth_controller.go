package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"webshare-api/internal/application/ports"
	"webshare-api/internal/infrastructure/metrics"
	"webshare-api/internal/interface/api/rest/dto/auth"
	"webshare-api/internal/interface/api/rest/validator"
)

type AuthController struct {
	logger      *zap.Logger
	authService ports.Auth
	mCounter    *prometheus.CounterVec
}

func NewAuthController(
	r *gin.Engine,
	logger *zap.Logger,
	authService ports.Auth,
	mCounter *prometheus.CounterVec,
) *AuthController {
	ac := &AuthController{
		logger:      logger,
		authService: authService,
		mCounter:    mCounter,
	}

	r.POST(RouteLogin, ac.LoginHandler)

	return ac
}

// LoginHandler accepts JSON or url-encoded bodies.
// Absent credentials are treated like wrong ones.
func (ac *AuthController) LoginHandler(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		ac.reject(c)
		return
	}
	if errs := validator.ValidateLogin(req); errs != nil {
		ac.reject(c)
		return
	}

	ok, err := ac.authService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ac.logger.Error("Authenticate() error", zap.Error(err), zap.String("user_id", req.Username))
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusInternalError})
		return
	}
	if !ok {
		ac.reject(c)
		return
	}

	ac.mCounter.WithLabelValues(metrics.LoginSucceeded).Inc()
	c.JSON(http.StatusOK, gin.H{"status": StatusOK})
}

func (ac *AuthController) reject(c *gin.Context) {
	ac.mCounter.WithLabelValues(metrics.LoginRejected).Inc()
	c.JSON(http.StatusUnauthorized, gin.H{"status": StatusFail})
}
