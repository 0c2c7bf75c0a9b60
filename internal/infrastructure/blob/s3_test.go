package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
)

// fakeS3 bucket en memoria con páginas de pageSize objetos.
type fakeS3 struct {
	mu       sync.Mutex
	objs     map[string][]byte
	ctypes   map[string]string
	pageSize int
	headErr  error
	lists    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objs: map[string][]byte{}, ctypes: map[string]string{}, pageSize: 2}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	data, ok := f.objs[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(f.ctypes[aws.ToString(in.Key)]),
		LastModified:  aws.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objs[aws.ToString(in.Key)] = data
	f.ctypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objs[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(f.ctypes[aws.ToString(in.Key)]),
	}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var keys []string
	for k := range f.objs {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
				break
			}
		}
	}
	end := start + f.pageSize
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objs[k])))})
	}
	return out, nil
}

func TestS3_PutCreateOnlyYGet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3WithClient(fake, "exports")

	info, err := store.Put(ctx, "traceability/lot-L1/a.json", strings.NewReader("{}"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size)
	assert.Equal(t, "application/json", info.ContentType)

	_, err = store.Put(ctx, "traceability/lot-L1/a.json", strings.NewReader("{}"), "application/json")
	assert.Equal(t, "DUPLICATE", domain.Code(err))

	_, rc, err := store.Get(ctx, "traceability/lot-L1/a.json")
	require.NoError(t, err)
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "{}", string(raw))

	_, _, err = store.Get(ctx, "nada.json")
	assert.Equal(t, "NOT_FOUND", domain.Code(err))
}

func TestS3_HeadConErrorNoEscribe(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = errors.New("AccessDenied")
	store := newS3WithClient(fake, "exports")

	_, err := store.Put(context.Background(), "k.json", strings.NewReader("{}"), "")
	require.Error(t, err)
	assert.Equal(t, "INTERNAL", domain.Code(err))
	assert.Empty(t, fake.objs)
}

func TestS3_ListPagina(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3WithClient(fake, "exports")
	for _, k := range []string{"p/1", "p/2", "p/3", "p/4", "p/5", "q/1"} {
		_, err := store.Put(ctx, k, strings.NewReader("x"), "")
		require.NoError(t, err)
	}

	list, err := store.List(ctx, "p/")
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "p/1", list[0].Key)
	assert.Equal(t, "p/5", list[4].Key)
	assert.Equal(t, 3, fake.lists, "5 objetos en páginas de 2")
}
