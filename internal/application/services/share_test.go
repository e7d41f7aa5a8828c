package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webshare-api/internal/application/ports"
	"webshare-api/internal/domain/share"
	"webshare-api/internal/infrastructure/blob"
	"webshare-api/internal/infrastructure/metrics"
	"webshare-api/internal/infrastructure/mq"
)

type fakeAuth struct {
	AuthenticateFunc func(ctx context.Context, username, password string) (bool, error)
}

func (f *fakeAuth) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if f.AuthenticateFunc == nil {
		return false, errors.New("not used")
	}
	return f.AuthenticateFunc(ctx, username, password)
}

type fakeBlobStore struct {
	PutFunc    func(ctx context.Context, obj ports.BlobObject) error
	DeleteFunc func(ctx context.Context, key string) error

	puts    []ports.BlobObject
	bodies  []string
	deletes []string
}

func (f *fakeBlobStore) Put(ctx context.Context, obj ports.BlobObject) (string, error) {
	f.puts = append(f.puts, obj)
	b, _ := io.ReadAll(obj.Body)
	f.bodies = append(f.bodies, string(b))
	if f.PutFunc != nil {
		if err := f.PutFunc(ctx, obj); err != nil {
			return "", err
		}
	}
	return f.GetPublicURL(obj.Key), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, key)
	}
	return nil
}

func (f *fakeBlobStore) GetPublicURL(key string) string {
	return blob.PublicURL("pics", "sgp1.digitaloceanspaces.com", key)
}

func (f *fakeBlobStore) GetBucket() string { return "pics" }

type fakeShareRepo struct {
	InsertEntryFunc func(ctx context.Context, e share.Entry) (share.ID, error)
	entries         []share.Entry
}

func (f *fakeShareRepo) InsertEntry(ctx context.Context, e share.Entry) (share.ID, error) {
	f.entries = append(f.entries, e)
	if f.InsertEntryFunc == nil {
		return "65f1a2b3c4d5e6f708192a3b", nil
	}
	return f.InsertEntryFunc(ctx, e)
}

type fakePublisher struct {
	events []mq.Event
	accept bool
}

func (f *fakePublisher) Publish(e mq.Event) bool {
	f.events = append(f.events, e)
	return f.accept
}

func allow(context.Context, string, string) (bool, error) { return true, nil }

func stagedFile(t *testing.T, content string) *share.UploadedFile {
	t.Helper()
	name := "0123456789abcdef0123456789abcdef"
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return &share.UploadedFile{
		Path:         path,
		FileName:     name,
		OriginalName: "Mon Été.JPG",
		ContentType:  "image/jpeg",
		Size:         int64(len(content)),
	}
}

func validShareRequest(t *testing.T) share.Request {
	return share.Request{
		Username: "fred",
		Password: "fred123",
		Title:    "sunset",
		Comments: "from the balcony",
		File:     stagedFile(t, "jpeg-bytes"),
	}
}

func newPipeline(auth *fakeAuth, bs *fakeBlobStore, repo *fakeShareRepo, events ports.EventPublisher) *SharePipeline {
	sp := NewSharePipeline(auth, bs, repo, events, zap.NewNop(), metrics.NewTestCounter(), time.Second)
	sp.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.FixedZone("SGT", 8*3600)) }
	return sp
}

func TestSharePipeline_Success(t *testing.T) {
	bs := &fakeBlobStore{}
	repo := &fakeShareRepo{}
	events := &fakePublisher{accept: true}
	sp := newPipeline(&fakeAuth{AuthenticateFunc: allow}, bs, repo, events)

	req := validShareRequest(t)
	entry, err := sp.Share(context.Background(), req)
	require.NoError(t, err)

	wantURL := "https://pics.sgp1.digitaloceanspaces.com/0123456789abcdef0123456789abcdef"
	assert.Equal(t, share.ID("65f1a2b3c4d5e6f708192a3b"), entry.ID)
	assert.Equal(t, wantURL, entry.ImageURL)
	assert.Equal(t, time.Date(2026, 10, 16, 1, 30, 0, 0, time.UTC), entry.CreatedAt)

	require.Len(t, bs.puts, 1)
	put := bs.puts[0]
	assert.Equal(t, req.File.FileName, put.Key)
	assert.Equal(t, "image/jpeg", put.ContentType)
	assert.Equal(t, int64(10), put.Size)
	assert.Equal(t, "mon-ete.jpg", put.Metadata["original-name"])
	assert.Equal(t, "fred", put.Metadata["uploaded-by"])
	assert.Equal(t, "jpeg-bytes", bs.bodies[0])

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "sunset", repo.entries[0].Title)
	assert.Equal(t, "from the balcony", repo.entries[0].Comments)
	assert.Equal(t, wantURL, repo.entries[0].ImageURL)

	assert.Empty(t, bs.deletes)

	require.Len(t, events.events, 1)
	assert.Equal(t, mq.RoutingShareCreated, events.events[0].Action)
	assert.Equal(t, "65f1a2b3c4d5e6f708192a3b", events.events[0].ShareID)
	assert.Equal(t, "fred", events.events[0].UserID)
}

func TestSharePipeline_Failures(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(req *share.Request)
		auth        func(context.Context, string, string) (bool, error)
		put         func(context.Context, ports.BlobObject) error
		insert      func(context.Context, share.Entry) (share.ID, error)
		del         func(context.Context, string) error
		wantStage   Stage
		wantErr     error
		wantPuts    int
		wantInserts int
		wantDeletes int
	}{
		{
			name:      "missing image is rejected before auth",
			mutate:    func(req *share.Request) { req.File = nil },
			auth:      func(context.Context, string, string) (bool, error) { panic("auth must not run") },
			wantStage: StageValidation,
			wantErr:   ErrMissingImage,
		},
		{
			name:      "blank title",
			mutate:    func(req *share.Request) { req.Title = "  " },
			auth:      allow,
			wantStage: StageValidation,
			wantErr:   ErrMissingTitle,
		},
		{
			name:      "blank comments",
			mutate:    func(req *share.Request) { req.Comments = "" },
			auth:      allow,
			wantStage: StageValidation,
			wantErr:   ErrMissingComments,
		},
		{
			name:      "bad credentials never reach the stores",
			auth:      func(context.Context, string, string) (bool, error) { return false, nil },
			wantStage: StageAuth,
			wantErr:   ErrInvalidCredentials,
		},
		{
			name: "credential store unreachable",
			auth: func(context.Context, string, string) (bool, error) {
				return false, ErrCredentialStore
			},
			wantStage: StageAuth,
			wantErr:   ErrCredentialStore,
		},
		{
			name:      "blob failure leaves no document",
			auth:      allow,
			put:       func(context.Context, ports.BlobObject) error { return errors.New("SlowDown") },
			wantStage: StageStorage,
			wantErr:   ErrBlobStore,
			wantPuts:  1,
		},
		{
			name: "metadata failure compensates the blob",
			auth: allow,
			insert: func(context.Context, share.Entry) (share.ID, error) {
				return "", errors.New("server selection timeout")
			},
			wantStage:   StageMetadata,
			wantErr:     ErrMetadataStore,
			wantPuts:    1,
			wantInserts: 1,
			wantDeletes: 1,
		},
		{
			name: "failed compensation keeps the metadata error",
			auth: allow,
			insert: func(context.Context, share.Entry) (share.ID, error) {
				return "", errors.New("write concern error")
			},
			del:         func(context.Context, string) error { return errors.New("AccessDenied") },
			wantStage:   StageMetadata,
			wantErr:     ErrMetadataStore,
			wantPuts:    1,
			wantInserts: 1,
			wantDeletes: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			bs := &fakeBlobStore{PutFunc: tt.put, DeleteFunc: tt.del}
			repo := &fakeShareRepo{InsertEntryFunc: tt.insert}
			events := &fakePublisher{accept: true}
			sp := newPipeline(&fakeAuth{AuthenticateFunc: tt.auth}, bs, repo, events)

			req := validShareRequest(t)
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			entry, err := sp.Share(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, entry)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantStage, se.Stage)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Len(t, bs.puts, tt.wantPuts)
			assert.Len(t, repo.entries, tt.wantInserts)
			assert.Len(t, bs.deletes, tt.wantDeletes)
			if tt.wantDeletes > 0 {
				assert.Equal(t, req.File.FileName, bs.deletes[0])
			}
			assert.Empty(t, events.events)
		})
	}
}

func TestSharePipeline_CompensationSurvivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var deleteCtxErr error
	bs := &fakeBlobStore{DeleteFunc: func(ctx context.Context, _ string) error {
		deleteCtxErr = ctx.Err()
		return nil
	}}
	repo := &fakeShareRepo{InsertEntryFunc: func(context.Context, share.Entry) (share.ID, error) {
		cancel()
		return "", context.Canceled
	}}
	sp := newPipeline(&fakeAuth{AuthenticateFunc: allow}, bs, repo, nil)

	_, err := sp.Share(ctx, validShareRequest(t))
	require.ErrorIs(t, err, ErrMetadataStore)
	require.Len(t, bs.deletes, 1)
	assert.NoError(t, deleteCtxErr)
}

func TestSharePipeline_Counters(t *testing.T) {
	counter := metrics.NewTestCounter()
	bs := &fakeBlobStore{}
	sp := NewSharePipeline(&fakeAuth{AuthenticateFunc: allow}, bs, &fakeShareRepo{}, &fakePublisher{accept: false}, zap.NewNop(), counter, time.Second)

	_, err := sp.Share(context.Background(), validShareRequest(t))
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues(metrics.ShareCreated)))
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues(metrics.EventDropped)))

	bs.PutFunc = func(context.Context, ports.BlobObject) error { return errors.New("down") }
	_, err = sp.Share(context.Background(), validShareRequest(t))
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues(metrics.ShareFailedStorage)))
}

func TestSharePipeline_MissingStagedFile(t *testing.T) {
	bs := &fakeBlobStore{}
	sp := newPipeline(&fakeAuth{AuthenticateFunc: allow}, bs, &fakeShareRepo{}, nil)

	req := validShareRequest(t)
	require.NoError(t, os.Remove(req.File.Path))

	_, err := sp.Share(context.Background(), req)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageStorage, se.Stage)
	assert.Empty(t, bs.puts)
}
