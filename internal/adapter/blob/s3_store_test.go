package blob_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/homeservice-site/internal/adapter/blob"
	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestStorePut(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	putter := &fakePutter{}
	store := blob.NewWithClient(putter, "site-media", "https://media.example.com/", node)

	url, err := store.Put(context.Background(), "../Kitchen Before.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	key := *putter.input.Key
	require.True(t, strings.HasPrefix(key, "uploads/"))
	require.True(t, strings.HasSuffix(key, "-Kitchen-Before.jpg"))
	require.Equal(t, "site-media", *putter.input.Bucket)
	require.Equal(t, "image/jpeg", *putter.input.ContentType)
	require.Equal(t, "jpeg-bytes", putter.body)
	require.Equal(t, "https://media.example.com/"+key, url)
}

func TestStoreNotConfigured(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	store, err := blob.New(context.Background(), blob.Config{}, node)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	require.ErrorIs(t, err, integration.ErrNotConfigured)
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "photo.png", blob.SanitizeFilename("photo.png"))
	require.Equal(t, "evil.sh", blob.SanitizeFilename("/etc/../evil.sh"))
	require.Equal(t, "win.txt", blob.SanitizeFilename(`C:\Users\win.txt`))
	require.Equal(t, "my-file.pdf", blob.SanitizeFilename("my file!.pdf"))
	require.Equal(t, "", blob.SanitizeFilename(".."))
	require.Len(t, blob.SanitizeFilename(strings.Repeat("a", 300)+".jpg"), 100)
}
