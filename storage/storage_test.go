package storage

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"local", Config{Type: "local", BaseDir: t.TempDir()}, false},
		{"local uppercase", Config{Type: "LOCAL", BaseDir: t.TempDir()}, false},
		{"local missing base dir", Config{Type: "local"}, true},
		{"s3", Config{Type: "s3", Bucket: "screens", Region: "eu-central-1"}, false},
		{"s3 missing bucket", Config{Type: "s3", Region: "eu-central-1"}, true},
		{"s3 missing region", Config{Type: "s3", Bucket: "screens"}, true},
		{"unsupported", Config{Type: "gcs"}, true},
		{"empty", Config{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestNew_S3PresignExpiry(t *testing.T) {
	store, err := New(Config{Type: "s3", Bucket: "screens", Region: "eu-central-1", PresignExpiry: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, store.(*S3Storage).presignExpiration)

	plain, err := NewS3Storage("screens", "eu-central-1")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, plain.presignExpiration)
}

func TestNewLocalStorage_InvalidBase(t *testing.T) {
	for _, dir := range []string{"", "."} {
		_, err := NewLocalStorage(dir)
		assert.ErrorIs(t, err, ErrInvalidPath)
	}
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	require.NoError(t, store.Upload(ctx, "screenshots/screenshot_1.jpg", bytes.NewReader(payload)))

	exists, err := store.Exists(ctx, "screenshots/screenshot_1.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Download(ctx, "screenshots/screenshot_1.jpg")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, got)

	url, err := store.GetURL(ctx, "screenshots/screenshot_1.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, filepath.Join("screenshots", "screenshot_1.jpg")))

	require.NoError(t, store.Delete(ctx, "screenshots/screenshot_1.jpg"))
	exists, err = store.Exists(ctx, "screenshots/screenshot_1.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Download(ctx, "screenshots/screenshot_1.jpg")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "screenshots/screenshot_1.jpg"), ErrFileNotFound)
	_, err = store.GetURL(ctx, "screenshots/screenshot_1.jpg")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"", "../outside.jpg", "screenshots/../../outside.jpg"} {
		t.Run(p, func(t *testing.T) {
			assert.ErrorIs(t, store.Upload(ctx, p, strings.NewReader("x")), ErrInvalidPath)
			_, err := store.Download(ctx, p)
			assert.ErrorIs(t, err, ErrInvalidPath)
			_, err = store.Exists(ctx, p)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"screenshots/screenshot_2.jpg", "screenshots/screenshot_1.jpg", "exports/report.csv"} {
		require.NoError(t, store.Upload(ctx, p, strings.NewReader("data")))
	}

	objects, err := store.List(ctx, "screenshots/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "screenshots/screenshot_1.jpg", objects[0].Path)
	assert.Equal(t, "screenshots/screenshot_2.jpg", objects[1].Path)
	assert.Equal(t, int64(4), objects[0].Size)
	assert.False(t, objects[0].ModTime.IsZero())

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.List(ctx, "missing/")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"screenshot_1.jpg", false},
		{"screenshots/screenshot_1.jpg", false},
		{"screenshots/../screenshot_1.jpg", false},
		{"./screenshot_1.jpg", false},
		{"", true},
		{"../outside.jpg", true},
		{"/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsS3NotFoundError(t *testing.T) {
	assert.False(t, isS3NotFoundError(nil))
	assert.False(t, isS3NotFoundError(context.Canceled))
	assert.True(t, isS3NotFoundError(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isS3NotFoundError(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isS3NotFoundError(&smithy.GenericAPIError{Code: "AccessDenied"}))
}
