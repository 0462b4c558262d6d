package param

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/samber/do"
)

// SSMAPI is the subset of the SSM client used by ParameterStoreFetcher.
type SSMAPI interface {
	GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type ParameterStoreFetcher struct {
	client SSMAPI
}

func NewParameterStoreFetcher(i *do.Injector) (Fetcher, error) {
	return &ParameterStoreFetcher{client: do.MustInvoke[*ssm.Client](i)}, nil
}

func (f *ParameterStoreFetcher) Fetch(ctx context.Context, path string) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("parameter store").With("path", path)
	log.Info("fetching single parameter")

	out, err := f.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", path, err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("get parameter %s: empty response", path)
	}
	return aws.ToString(out.Parameter.Value), nil
}
