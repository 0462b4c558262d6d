package main

import (
	"context"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/pawtrait/internal/api"
	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/inject"
	"github.com/dmorgan81/pawtrait/internal/lambda"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/dmorgan81/pawtrait/internal/prompt"
	"github.com/samber/do"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.New(os.Stderr, nil).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, log.ParseLevel(cfg.LogLevel))
	ctx := log.NewContext(context.Background(), logger)
	injector := inject.Setup(ctx, cfg)
	if _, err := do.Invoke[*prompt.Catalog](injector); err != nil {
		logger.Error("load prompt catalog", "error", err)
		os.Exit(1)
	}

	adapter := lambda.NewAdapter(do.MustInvoke[*api.API](injector).Routes())
	awslambda.StartWithOptions(adapter.Handle, awslambda.WithContext(ctx), awslambda.WithEnableSIGTERM(func() {
		_ = injector.Shutdown()
	}))
}
