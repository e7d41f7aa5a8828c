package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"webshare-api/internal/application/ports"
	"webshare-api/internal/application/services"
	"webshare-api/internal/infrastructure/upload"
	"webshare-api/internal/interface/api/rest/dto/share"
	"webshare-api/internal/interface/api/rest/validator"
)

const (
	FieldImage = "image-file"

	// room for the text fields and multipart framing on top of the image itself
	formOverhead = int64(1 << 20)
)

type ShareController struct {
	logger       *zap.Logger
	receiver     ports.UploadReceiver
	shareService ports.ShareService
	maxBodySize  int64
}

func NewShareController(
	r *gin.Engine,
	logger *zap.Logger,
	receiver ports.UploadReceiver,
	shareService ports.ShareService,
	maxUploadSize int64,
) *ShareController {
	sc := &ShareController{
		logger:       logger,
		receiver:     receiver,
		shareService: shareService,
		maxBodySize:  maxUploadSize + formOverhead,
	}

	r.POST(RouteShare, sc.ShareHandler)

	return sc
}

func (sc *ShareController) ShareHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sc.maxBodySize)

	var req share.Request
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": StatusFail, "error": upload.ErrFileSize.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFail, "error": "invalid multipart form"})
		return
	}

	fh, err := c.FormFile(FieldImage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFail, "error": FieldImage + " is required"})
		return
	}

	if errs := validator.ValidateShare(req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": StatusFail,
			"error":  validator.First(errs, "title", "comments"),
		})
		return
	}

	staged, err := sc.receiver.Receive(fh)
	if err != nil {
		if errors.Is(err, upload.ErrFileSize) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": StatusFail, "error": err.Error()})
			return
		}
		sc.logger.Error("Receive() error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusInternalError})
		return
	}
	defer func() { _ = sc.receiver.Discard(staged) }()

	entry, err := sc.shareService.Share(c.Request.Context(), share.ToDomainRequest(req, staged))
	if err != nil {
		sc.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, share.ToResponse(*entry))
}

// writeError maps a pipeline failure to a fixed status string.
// The pipeline has already logged the cause.
func (sc *ShareController) writeError(c *gin.Context, err error) {
	var se *services.StageError
	if !errors.As(err, &se) {
		sc.logger.Error("Share() error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusInternalError})
		return
	}

	switch se.Stage {
	case services.StageValidation:
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusFail, "error": se.Err.Error()})
	case services.StageAuth:
		if errors.Is(se, services.ErrCredentialStore) {
			c.JSON(http.StatusInternalServerError, gin.H{"status": StatusInternalError})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"status": StatusFail})
	case services.StageStorage:
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusUploadFailed})
	case services.StageMetadata:
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusMetadataFailed})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusInternalError})
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
