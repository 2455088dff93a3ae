//go:build integration

package source

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createBucket(t *testing.T, src *S3Source) {
	t.Helper()
	_, err := src.client.(*s3.Client).CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: aws.String(src.bucket),
	})
	require.NoError(t, err)
}

func putObject(t *testing.T, src *S3Source, key, body string) {
	t.Helper()
	_, err := src.client.(*s3.Client).PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(src.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	})
	require.NoError(t, err)
}

func TestS3Source_Integration(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	src, err := NewS3Source(ctx, S3Config{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "skills",
		Prefix:          "corpus",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Error(t, src.CheckBucket(ctx))

	stat, err := src.Stat(ctx)
	require.NoError(t, err, "a missing bucket is an empty corpus")
	assert.Zero(t, stat.Count)

	createBucket(t, src)
	require.NoError(t, src.CheckBucket(ctx))

	putObject(t, src, "corpus/pdf/SKILL.md", "---\nname: pdf\ndescription: PDF tools\n---\nbody")
	putObject(t, src, "corpus/pdf/reference.md", "# Reference\n")
	putObject(t, src, "corpus/office/xlsx/SKILL.md", "---\nname: xlsx\ndescription: Sheets\n---\n")
	putObject(t, src, "elsewhere/SKILL.md", "---\nname: other\n---\n")

	assert.Equal(t, "s3://skills/corpus", src.Root())

	stat, err = src.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stat.Count)
	assert.False(t, stat.LatestModified.IsZero())

	skills, err := src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, skills, 2)

	file, err := src.ReadFile(ctx, "pdf", "reference.md", 1024)
	require.NoError(t, err)
	assert.Equal(t, "# Reference\n", file.Content)

	_, err = src.ReadFile(ctx, "pdf", "missing.md", 1024)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	_, err = src.ReadFile(ctx, "pdf", "reference.md", 4)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = src.ReadFile(ctx, "pdf", "../office/xlsx/SKILL.md", 1024)
	assert.ErrorIs(t, err, domain.ErrPathTraversal)
}
