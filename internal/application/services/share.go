package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"webshare-api/internal/application/ports"
	"webshare-api/internal/domain/share"
	"webshare-api/internal/infrastructure/metrics"
	"webshare-api/internal/infrastructure/mq"
)

type (
	State string
	Stage string
)

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateUploaded        State = "uploaded"
	StatePersisted       State = "persisted"
	StateComplete        State = "complete"

	StageValidation Stage = "validation"
	StageAuth       Stage = "auth"
	StageStorage    Stage = "storage"
	StageMetadata   Stage = "metadata"
)

var (
	ErrMissingImage    = errors.New("image is required")
	ErrMissingTitle    = errors.New("title is required")
	ErrMissingComments = errors.New("comments are required")
	ErrBlobStore       = errors.New("blob store write failed")
	ErrMetadataStore   = errors.New("metadata store write failed")
)

// StageError is the terminal Failed(stage) state of a share request.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("share failed at %s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type SharePipeline struct {
	auth            ports.Auth
	blob            ports.BlobStore
	shareRepository share.Repository
	events          ports.EventPublisher
	logger          *zap.Logger
	mCounter        *prometheus.CounterVec
	timeout         time.Duration
	now             func() time.Time
}

// NewSharePipeline - events may be nil when no broker is configured.
func NewSharePipeline(
	auth ports.Auth,
	blob ports.BlobStore,
	shareRepository share.Repository,
	events ports.EventPublisher,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
	timeout time.Duration,
) *SharePipeline {
	return &SharePipeline{
		auth:            auth,
		blob:            blob,
		shareRepository: shareRepository,
		events:          events,
		logger:          logger,
		mCounter:        mCounter,
		timeout:         timeout,
		now:             time.Now,
	}
}

// Share runs auth -> blob put -> document insert, stopping at the first failure.
// A document is only inserted after the blob put for the same upload succeeded;
// when the insert fails the blob is deleted again.
func (sp *SharePipeline) Share(ctx context.Context, req share.Request) (*share.Entry, error) {
	log := sp.logger.With(zap.String("user_id", req.Username))

	if err := validate(req); err != nil {
		return nil, &StageError{Stage: StageValidation, Err: err}
	}

	state := StateUnauthenticated

	ok, err := sp.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, sp.fail(log, state, StageAuth, err)
	}
	if !ok {
		return nil, sp.fail(log, state, StageAuth, ErrInvalidCredentials)
	}
	state = sp.advance(log, state, StateAuthenticated)

	stored, err := sp.putBlob(ctx, req)
	if err != nil {
		return nil, sp.fail(log, state, StageStorage, fmt.Errorf("%w: %w", ErrBlobStore, err))
	}
	state = sp.advance(log, state, StateUploaded)

	entry := share.Entry{
		CreatedAt: sp.now().UTC(),
		Title:     req.Title,
		Comments:  req.Comments,
		ImageURL:  stored.URL,
	}
	id, err := sp.insertEntry(ctx, entry)
	if err != nil {
		sp.compensate(ctx, log, stored)
		return nil, sp.fail(log, state, StageMetadata, fmt.Errorf("%w: %w", ErrMetadataStore, err))
	}
	entry.ID = id
	state = sp.advance(log, state, StatePersisted)

	sp.publish(log, req.Username, entry)
	sp.advance(log, state, StateComplete)
	sp.mCounter.WithLabelValues(metrics.ShareCreated).Inc()

	return &entry, nil
}

func validate(req share.Request) error {
	switch {
	case req.File == nil:
		return ErrMissingImage
	case strings.TrimSpace(req.Title) == "":
		return ErrMissingTitle
	case strings.TrimSpace(req.Comments) == "":
		return ErrMissingComments
	}
	return nil
}

func (sp *SharePipeline) putBlob(ctx context.Context, req share.Request) (*share.StoredBlob, error) {
	f, err := os.Open(req.File.Path)
	if err != nil {
		return nil, fmt.Errorf("open staged upload: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, sp.timeout)
	defer cancel()

	url, err := sp.blob.Put(ctx, ports.BlobObject{
		Key:         req.File.FileName,
		Body:        f,
		ContentType: req.File.ContentType,
		Size:        req.File.Size,
		Metadata: map[string]string{
			"original-name": sanitizeFileName(req.File.OriginalName),
			"uploaded-by":   asciiValue(req.Username),
		},
	})
	if err != nil {
		return nil, err
	}

	return &share.StoredBlob{
		Bucket:      sp.blob.GetBucket(),
		Key:         req.File.FileName,
		ContentType: req.File.ContentType,
		Size:        req.File.Size,
		URL:         url,
	}, nil
}

func (sp *SharePipeline) insertEntry(ctx context.Context, e share.Entry) (share.ID, error) {
	ctx, cancel := context.WithTimeout(ctx, sp.timeout)
	defer cancel()

	return sp.shareRepository.InsertEntry(ctx, e)
}

// compensate removes the blob of a share whose document was never written.
// It outlives a cancelled request context; its own failure is only logged.
func (sp *SharePipeline) compensate(ctx context.Context, log *zap.Logger, stored *share.StoredBlob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sp.timeout)
	defer cancel()

	if err := sp.blob.Delete(ctx, stored.Key); err != nil {
		sp.mCounter.WithLabelValues(metrics.CompensationFailed).Inc()
		log.Error("orphaned blob left after metadata failure",
			zap.String("bucket", stored.Bucket),
			zap.String("key", stored.Key),
			zap.Error(err),
		)
		return
	}

	log.Warn("blob removed after metadata failure", zap.String("key", stored.Key))
}

func (sp *SharePipeline) publish(log *zap.Logger, userID string, e share.Entry) {
	if sp.events == nil {
		return
	}
	ok := sp.events.Publish(mq.Event{
		Id:      uuid.New(),
		TS:      e.CreatedAt,
		Action:  mq.RoutingShareCreated,
		UserID:  userID,
		ShareID: string(e.ID),
		Image:   e.ImageURL,
	})
	if !ok {
		sp.mCounter.WithLabelValues(metrics.EventDropped).Inc()
		log.Warn("share event dropped", zap.String("share_id", string(e.ID)))
	}
}

func (sp *SharePipeline) advance(log *zap.Logger, from, to State) State {
	log.Debug("share state", zap.String("from", string(from)), zap.String("to", string(to)))
	return to
}

func (sp *SharePipeline) fail(log *zap.Logger, from State, stage Stage, err error) error {
	switch stage {
	case StageAuth:
		sp.mCounter.WithLabelValues(metrics.ShareFailedAuth).Inc()
	case StageStorage:
		sp.mCounter.WithLabelValues(metrics.ShareFailedStorage).Inc()
	case StageMetadata:
		sp.mCounter.WithLabelValues(metrics.ShareFailedMetadata).Inc()
	}

	if errors.Is(err, ErrInvalidCredentials) {
		log.Info("share rejected", zap.String("from", string(from)), zap.String("stage", string(stage)))
	} else {
		log.Error("share failed", zap.String("from", string(from)), zap.String("stage", string(stage)), zap.Error(err))
	}

	return &StageError{Stage: stage, Err: err}
}
