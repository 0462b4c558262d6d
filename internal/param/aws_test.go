package param

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	input *ssm.GetParameterInput
	out   *ssm.GetParameterOutput
	err   error
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestFetchDecryptsParameter(t *testing.T) {
	client := &fakeSSM{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String("secret")}}}
	f := &ParameterStoreFetcher{client: client}

	got, err := f.Fetch(context.Background(), "/pawtrait/key")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got != "secret" {
		t.Fatalf("Fetch = %q, want secret", got)
	}
	if aws.ToString(client.input.Name) != "/pawtrait/key" || !aws.ToBool(client.input.WithDecryption) {
		t.Fatalf("unexpected input: %+v", client.input)
	}
}

func TestFetchWrapsError(t *testing.T) {
	cause := errors.New("access denied")
	f := &ParameterStoreFetcher{client: &fakeSSM{err: cause}}

	if _, err := f.Fetch(context.Background(), "/pawtrait/key"); !errors.Is(err, cause) {
		t.Fatalf("Fetch error = %v, want wrapped %v", err, cause)
	}
}

func TestFetchEmptyParameter(t *testing.T) {
	f := &ParameterStoreFetcher{client: &fakeSSM{out: &ssm.GetParameterOutput{}}}
	if _, err := f.Fetch(context.Background(), "/pawtrait/key"); err == nil {
		t.Fatal("expected error for missing parameter")
	}
}
