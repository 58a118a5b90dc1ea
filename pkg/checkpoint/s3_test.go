package checkpoint_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3MirrorUpload(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mirror, err := checkpoint.NewS3Mirror(context.Background(), checkpoint.S3Config{
		Bucket:          "models",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Prefix:          "fl/",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	require.NoError(t, mirror.Upload(context.Background(), "round_0/checkpoint.cbor.sz", []byte("data")))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"PUT /models/fl/round_0/checkpoint.cbor.sz"}, paths)
}

func TestS3MirrorRequiresBucket(t *testing.T) {
	_, err := checkpoint.NewS3Mirror(context.Background(), checkpoint.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
