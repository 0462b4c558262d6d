package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store writes to Supabase Storage through its S3-compatible endpoint.
type S3Store struct {
	Client      S3API
	Bucket      string
	SupabaseURL string
}

// NewSupabaseClient builds an S3 client for the Supabase storage endpoint.
// Without dedicated S3 keys it falls back to session token auth, where the
// project ref is the access key and the service key doubles as secret and token.
func NewSupabaseClient(i *do.Injector) (*s3.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if missing := cfg.MissingStore(); len(missing) > 0 {
		return nil, fmt.Errorf("storage not configured, missing %v", missing)
	}

	var creds aws.CredentialsProvider
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")
	} else {
		ref, err := ProjectRef(cfg.SupabaseURL)
		if err != nil {
			return nil, err
		}
		key, err := do.InvokeNamed[string](i, "supabase_service_key")
		if err != nil {
			return nil, err
		}
		creds = credentials.NewStaticCredentialsProvider(ref, key, key)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(creds)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.SupabaseURL, "/") + "/storage/v1/s3"
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}), nil
}

func NewS3Store(i *do.Injector) (*S3Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client, err := do.Invoke[*s3.Client](i)
	if err != nil {
		return nil, err
	}
	return &S3Store{Client: client, Bucket: cfg.Bucket, SupabaseURL: cfg.SupabaseURL}, nil
}

// ProjectRef extracts the project reference from a https://<ref>.supabase.co URL.
func ProjectRef(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase url: %w", err)
	}
	ref, _, found := strings.Cut(u.Hostname(), ".")
	if !found || ref == "" {
		return "", fmt.Errorf("no project ref in supabase url %q", rawURL)
	}
	return ref, nil
}

func (s *S3Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(s.SupabaseURL, "/"), s.Bucket, key)
}

func (s *S3Store) Store(ctx context.Context, params UploadParams) (string, error) {
	if s.Bucket == "" {
		return "", errors.New("bucket is not configured")
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("store").With(
		"name", params.Name,
		"content-type", params.ContentType,
		"bucket", s.Bucket,
	)
	log.Info("uploading to supabase storage")

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(params.Name),
		ContentType: aws.String(params.ContentType),
		Body:        bytes.NewReader(params.Data),
		Metadata:    encodeMetadata(params.Metadata),
	})
	if err != nil {
		return "", err
	}
	return s.PublicURL(params.Name), nil
}

func (s *S3Store) List(ctx context.Context) ([]Object, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("store").With("bucket", s.Bucket)
	log.Info("listing generated objects")

	pager := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(KeyPrefix),
	})

	var keys []string
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		objs := lo.Filter(page.Contents, func(o s3types.Object, _ int) bool {
			return strings.HasSuffix(aws.ToString(o.Key), ".png")
		})
		keys = append(keys, lo.Map(objs, func(o s3types.Object, _ int) string {
			return aws.ToString(o.Key)
		})...)
	}

	objects := make([]Object, len(keys))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for idx, key := range keys {
		group.Go(func() error {
			out, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.Bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return fmt.Errorf("head %s: %w", key, err)
			}
			objects[idx] = Object{
				Key:          key,
				URL:          s.PublicURL(key),
				LastModified: aws.ToTime(out.LastModified),
				Metadata:     decodeMetadata(out.Metadata),
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return objects, nil
}

// S3 user metadata must be ASCII, so values travel query-escaped.
func encodeMetadata(m map[string]string) map[string]string {
	return lo.MapValues(m, func(v string, _ string) string {
		return url.QueryEscape(v)
	})
}

func decodeMetadata(m map[string]string) map[string]string {
	return lo.MapValues(m, func(v string, _ string) string {
		if decoded, err := url.QueryUnescape(v); err == nil {
			return decoded
		}
		return v
	})
}
