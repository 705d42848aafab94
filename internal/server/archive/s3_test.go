package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	key := ObjectKey(at)

	assert.Regexp(t, regexp.MustCompile(`^allowlist/2026/03/08/[0-9a-f-]{36}\.jsonl$`), key)
	assert.NotEqual(t, key, ObjectKey(at))
}

func TestArchive_WritesJSONLines(t *testing.T) {
	put := &fakePutter{}
	a := &S3Archiver{bucket: "audit", client: put}
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tokens := []models.AllowlistedToken{
		{TokenID: "a", OwnerID: "1", ExpiresAt: exp, Audience: "curl"},
		{TokenID: "b", OwnerID: "2", ExpiresAt: exp},
	}
	key, err := a.Archive(context.Background(), tokens, exp)
	require.NoError(t, err)

	assert.Equal(t, "audit", aws.ToString(put.in.Bucket))
	assert.Equal(t, key, aws.ToString(put.in.Key))
	assert.True(t, strings.HasPrefix(key, "allowlist/2026/01/01/"))

	var got []models.AllowlistedToken
	sc := bufio.NewScanner(strings.NewReader(put.body))
	for sc.Scan() {
		var tok models.AllowlistedToken
		require.NoError(t, json.Unmarshal(sc.Bytes(), &tok))
		got = append(got, tok)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].TokenID)
	assert.Equal(t, "2", got[1].OwnerID)
	assert.Equal(t, int64(len(put.body)), aws.ToInt64(put.in.ContentLength))
}

func TestArchive_EmptyBatchSkipsUpload(t *testing.T) {
	put := &fakePutter{}
	a := &S3Archiver{bucket: "audit", client: put}

	key, err := a.Archive(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Nil(t, put.in)
}

func TestArchive_PutError(t *testing.T) {
	put := &fakePutter{err: errors.New("access denied")}
	a := &S3Archiver{bucket: "audit", client: put}

	_, err := a.Archive(context.Background(), []models.AllowlistedToken{{TokenID: "a"}}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3Archiver_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	a, err := NewS3Archiver(context.Background(), Options{
		Bucket: "audit", Region: "eu-west-1", AccessKey: "minio", SecretKey: "secret",
		BaseEndpoint: "http://127.0.0.1:9000", ForcePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "audit", a.bucket)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Archiver_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3Archiver(context.Background(), Options{})
	require.Error(t, err)
}
