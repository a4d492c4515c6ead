package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket. ListObjectsV2 returns pageSize keys per page.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	deletes  int // DeleteObjects calls
	failGet  error
}

var _ API = (*fakeS3)(nil)

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}, pageSize: 2} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = b
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, o := range in.Delete.Objects {
		delete(f.objects, aws.ToString(o.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) has(k string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[k]
	return ok
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(newFakeS3(), Config{})
	require.ErrorIs(t, err, ErrNoBucket)
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	p, err := New(api, Config{Bucket: "b", Prefix: "/team/"})
	require.NoError(t, err)

	_, ok, err := p.Get(ctx, "cache/a")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = p.Set(ctx, "cache/a", []byte("v1"), 2, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, api.has("team/cache/a.cache"))

	b, ok, err := p.Get(ctx, "cache/a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), b)

	require.NoError(t, p.Del(ctx, "cache/a"))
	require.NoError(t, p.Del(ctx, "cache/a"))
	_, ok, _ = p.Get(ctx, "cache/a")
	require.False(t, ok)
}

func TestAbsoluteDirMapsToRelativeObject(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	p, err := New(api, Config{Bucket: "b"})
	require.NoError(t, err)

	_, err = p.Set(ctx, "/var/cache/k", []byte("v"), 1, 0)
	require.NoError(t, err)
	require.True(t, api.has("var/cache/k.cache"))
}

func TestGetError(t *testing.T) {
	api := newFakeS3()
	boom := errors.New("throttled")
	api.failGet = boom
	p, err := New(api, Config{Bucket: "b"})
	require.NoError(t, err)

	_, ok, err := p.Get(context.Background(), "k")
	require.ErrorIs(t, err, boom)
	require.False(t, ok)
}

func TestClearPrefix(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	p, err := New(api, Config{Bucket: "b"})
	require.NoError(t, err)

	for _, k := range []string{"cache/a", "cache/a/1", "cache/a/2/x", "cache/ab", "cache/b", "other/a"} {
		_, err := p.Set(ctx, k, []byte(k), 1, 0)
		require.NoError(t, err)
	}
	require.NoError(t, p.Lock(ctx, "cache/a/1"))

	require.NoError(t, p.Clear(ctx, "cache/a"))
	for _, k := range []string{"cache/a.cache", "cache/a/1.cache", "cache/a/2/x.cache"} {
		require.False(t, api.has(k), k)
	}
	for _, k := range []string{"cache/ab.cache", "cache/b.cache", "other/a.cache", "cache/a/1.lock"} {
		require.True(t, api.has(k), k)
	}

	require.NoError(t, p.Clear(ctx, "cache"))
	require.True(t, api.has("other/a.cache"))
	require.True(t, api.has("cache/a/1.lock"), "markers belong to their writers")
	require.Len(t, api.objects, 2)
}

func TestLockedUnder(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	p, err := New(api, Config{Bucket: "b", Prefix: "team"})
	require.NoError(t, err)

	for _, k := range []string{"/c/a", "/c/a/1", "/c/a/2/x", "/c/ab", "/d/a"} {
		require.NoError(t, p.Lock(ctx, k))
	}
	_, err = p.Set(ctx, "/c/a/3", []byte("v"), 1, 0)
	require.NoError(t, err)

	keys, err := p.LockedUnder(ctx, "/c/a")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/c/a", "/c/a/1", "/c/a/2/x"}, keys)
}

func TestLockMarkers(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	p, err := New(api, Config{Bucket: "b"})
	require.NoError(t, err)

	locked, err := p.IsLocked(ctx, "cache/k")
	require.NoError(t, err)
	require.False(t, locked)

	require.NoError(t, p.Lock(ctx, "cache/k"))
	require.NoError(t, p.Lock(ctx, "cache/k"))
	require.True(t, api.has("cache/k.lock"))
	locked, _ = p.IsLocked(ctx, "cache/k")
	require.True(t, locked)

	require.NoError(t, p.Unlock(ctx, "cache/k"))
	require.NoError(t, p.Unlock(ctx, "cache/k"))
	locked, _ = p.IsLocked(ctx, "cache/k")
	require.False(t, locked)
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(&types.NoSuchKey{}))
	require.True(t, isNotFound(&types.NotFound{}))
	require.False(t, isNotFound(errors.New("access denied")))
}
