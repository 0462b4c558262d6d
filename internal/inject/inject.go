package inject

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/pawtrait/internal/api"
	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/feed"
	"github.com/dmorgan81/pawtrait/internal/handler"
	"github.com/dmorgan81/pawtrait/internal/image"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/dmorgan81/pawtrait/internal/param"
	"github.com/dmorgan81/pawtrait/internal/prompt"
	"github.com/dmorgan81/pawtrait/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	logger := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[*config.Config](injector, cfg)
	do.ProvideValue[*slog.Logger](injector, logger)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		awsCfg, err := do.Invoke[aws.Config](i)
		if err != nil {
			return nil, err
		}
		return ssm.NewFromConfig(awsCfg), nil
	})
	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)

	do.Provide[*prompt.Catalog](injector, func(i *do.Injector) (*prompt.Catalog, error) {
		if cfg.PromptsParam == "" {
			return prompt.LoadFile(cfg.PromptsFile)
		}
		doc, err := do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.PromptsParam)
		if err != nil {
			return nil, err
		}
		return prompt.Load(strings.NewReader(doc))
	})
	do.ProvideNamed[string](injector, "supabase_service_key", func(i *do.Injector) (string, error) {
		if cfg.SupabaseServiceKeyParam == "" {
			return cfg.ServiceKey(), nil
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.SupabaseServiceKeyParam)
	})

	do.Provide[*s3.Client](injector, store.NewSupabaseClient)
	do.Provide[*store.S3Store](injector, store.NewS3Store)
	do.Provide[*store.FileStore](injector, store.NewFileStore)
	do.Provide[store.Store](injector, func(i *do.Injector) (store.Store, error) {
		if cfg.StorageBackend == config.BackendFile {
			return do.Invoke[*store.FileStore](i)
		}
		return do.Invoke[*store.S3Store](i)
	})
	do.Provide[store.Lister](injector, func(i *do.Injector) (store.Lister, error) {
		if cfg.StorageBackend == config.BackendFile {
			return do.Invoke[*store.FileStore](i)
		}
		return do.Invoke[*store.S3Store](i)
	})
	do.Provide[image.Editor](injector, image.NewVertexEditor)

	do.ProvideNamedValue[string](injector, "site_link", cfg.PublicBaseURL)
	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*handler.Handler](injector, handler.NewHandler)
	do.Provide[*api.API](injector, api.NewAPI)

	return injector
}
