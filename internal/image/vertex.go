package image

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/samber/do"
	"google.golang.org/genai"
)

const OutputMIMEType = "image/png"

var ErrEmptyResult = errors.New("model returned no image")

// ModelsAPI is the part of the genai client used for image edits.
type ModelsAPI interface {
	EditImage(ctx context.Context, model, prompt string, refs []genai.ReferenceImage, config *genai.EditImageConfig) (*genai.EditImageResponse, error)
}

type VertexEditor struct {
	Models ModelsAPI
	Model  string
}

func NewVertexEditor(i *do.Injector) (Editor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if missing := cfg.MissingEditor(); len(missing) > 0 {
		return nil, fmt.Errorf("image editor not configured, missing %v", missing)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		Project:  cfg.GoogleProjectID,
		Location: cfg.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &VertexEditor{Models: client.Models, Model: cfg.ImagenModel}, nil
}

func (e *VertexEditor) Edit(ctx context.Context, params EditParams) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("editor").With("model", e.Model, "size", len(params.Image))
	log.Info("editing image via vertex ai")

	ref := genai.NewRawReferenceImage(&genai.Image{
		ImageBytes: params.Image,
		MIMEType:   params.MIMEType,
	}, 0)

	resp, err := e.Models.EditImage(ctx, e.Model, params.Prompt, []genai.ReferenceImage{ref}, &genai.EditImageConfig{
		NumberOfImages: 1,
		OutputMIMEType: OutputMIMEType,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, ErrEmptyResult
	}

	img := resp.GeneratedImages[0]
	if img.Image == nil || len(img.Image.ImageBytes) == 0 {
		if img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("%w: filtered: %s", ErrEmptyResult, img.RAIFilteredReason)
		}
		return nil, ErrEmptyResult
	}

	log.Info("received image via vertex ai", "bytes", len(img.Image.ImageBytes))
	return img.Image.ImageBytes, nil
}
