package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/sirupsen/logrus"
)

// S3Config holds configuration for S3Source
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UsePathStyle    bool
}

// s3API is the subset of *s3.Client the source reads with.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Source reads skills from an S3-compatible bucket (e.g., RustFS). Keys under
// Prefix mirror the filesystem layout: <group>/<name>/SKILL.md. The source never
// writes to the bucket.
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Source creates an S3Source with the given configuration
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3Source{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// Root identifies the corpus for staleness state.
func (s *S3Source) Root() string {
	return "s3://" + s.bucket + "/" + strings.TrimSuffix(s.prefix, "/")
}

// Stat counts SKILL.md objects and finds the newest LastModified from listings only.
func (s *S3Source) Stat(ctx context.Context) (*domain.CorpusStat, error) {
	stat := &domain.CorpusStat{}
	err := s.listSkills(ctx, func(obj types.Object) {
		stat.Count++
		if mt := aws.ToTime(obj.LastModified); mt.After(stat.LatestModified) {
			stat.LatestModified = mt
		}
	})
	if err != nil {
		return nil, err
	}
	return stat, nil
}

// Load downloads and parses every SKILL.md. Unreadable or malformed documents are
// skipped with a warning.
func (s *S3Source) Load(ctx context.Context) ([]*domain.RawSkill, error) {
	var keys []string
	if err := s.listSkills(ctx, func(obj types.Object) {
		keys = append(keys, aws.ToString(obj.Key))
	}); err != nil {
		return nil, err
	}

	skills := make([]*domain.RawSkill, 0, len(keys))
	for _, key := range keys {
		content, err := s.getObject(ctx, key, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.WithError(err).WithField("key", key).Warn("skipping unreadable skill")
			continue
		}

		skillDir := path.Dir(strings.TrimPrefix(key, s.prefix))
		if skillDir == "." {
			skillDir = ""
		}

		raw, err := NewRawSkill(skillDir, path.Base(strings.TrimSuffix(s.prefix, "/")), content)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("skipping malformed skill")
			continue
		}
		skills = append(skills, raw)
	}
	return skills, nil
}

// ReadFile reads relPath inside the skill directory skillDir.
func (s *S3Source) ReadFile(ctx context.Context, skillDir, relPath string, maxBytes int64) (*domain.SkillFile, error) {
	rel, err := cleanRelPath(relPath)
	if err != nil {
		return nil, err
	}
	key := s.prefix + path.Join(skillDir, rel)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3NotFound(err)
	}
	if maxBytes > 0 && aws.ToInt64(head.ContentLength) > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	content, err := s.getObject(ctx, key, maxBytes)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(content) {
		return nil, domain.ErrFileNotText
	}

	return &domain.SkillFile{
		Path:    rel,
		Content: string(content),
		Size:    int64(len(content)),
	}, nil
}

// CheckBucket reports whether the bucket is reachable with the configured credentials.
func (s *S3Source) CheckBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return fmt.Errorf("bucket %s is not reachable: %w", s.bucket, err)
	}
	return nil
}

// listSkills visits every SKILL.md object under the prefix. A missing bucket is
// an empty corpus.
func (s *S3Source) listSkills(ctx context.Context, visit func(types.Object)) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noBucket) {
				logrus.WithField("bucket", s.bucket).Warn("skills bucket does not exist")
				return nil
			}
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if path.Base(rel) != SkillFileName || hiddenKey(rel) {
				continue
			}
			visit(obj)
		}
	}
	return nil
}

func (s *S3Source) getObject(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3NotFound(err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if maxBytes > 0 {
		r = io.LimitReader(out.Body, maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, domain.ErrFileTooLarge
	}
	return content, nil
}

func hiddenKey(rel string) bool {
	for _, part := range strings.Split(path.Dir(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

func s3NotFound(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return domain.ErrFileNotFound
	}
	return err
}
