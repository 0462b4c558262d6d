package handler

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/image"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/dmorgan81/pawtrait/internal/prompt"
	"github.com/dmorgan81/pawtrait/internal/store"
	"github.com/google/uuid"
	"github.com/samber/do"
)

type Input struct {
	PromptID int
	Image    []byte
	MIMEType string
}

type Output struct {
	URL   string `json:"image_url"`
	Title string `json:"-"`
	Key   string `json:"-"`
}

// Handler is the service context shared by all requests. The editor and store
// are nil when their configuration is missing; the handler then refuses to
// generate instead of failing at startup.
type Handler struct {
	catalog         *prompt.Catalog
	editor          image.Editor
	store           store.Store
	generateTimeout time.Duration
	uploadTimeout   time.Duration
}

func NewHandler(i *do.Injector) (*Handler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	h := (&Handler{catalog: do.MustInvoke[*prompt.Catalog](i)}).
		WithTimeouts(cfg.GenerateTimeout, cfg.UploadTimeout)

	if editor, err := do.Invoke[image.Editor](i); err != nil {
		logger.Error("image editor unavailable", "error", err)
	} else {
		h.editor = editor
	}
	if s, err := do.Invoke[store.Store](i); err != nil {
		logger.Error("storage unavailable", "error", err)
	} else {
		h.store = s
	}

	return h, nil
}

func New(catalog *prompt.Catalog, editor image.Editor, s store.Store) *Handler {
	return &Handler{catalog: catalog, editor: editor, store: s}
}

// WithTimeouts bounds each edit and each upload separately. Zero means no bound.
func (h *Handler) WithTimeouts(generate, upload time.Duration) *Handler {
	h.generateTimeout = generate
	h.uploadTimeout = upload
	return h
}

func (h *Handler) Catalog() *prompt.Catalog {
	return h.catalog
}

func (h *Handler) Ready() bool {
	return h.editor != nil && h.store != nil
}

// CheckReady returns a KindUnavailable error until both adapters are initialized.
func (h *Handler) CheckReady() error {
	if h.Ready() {
		return nil
	}
	return Unavailable("service not ready", errors.New("image editor or storage client failed to initialize"))
}

// ResolvePrompt returns the catalog entry for id as a KindNotFound error when absent.
func (h *Handler) ResolvePrompt(id int) (prompt.Entry, error) {
	e, err := h.catalog.Entry(id)
	if err != nil {
		return prompt.Entry{}, newError(KindNotFound, "prompt not found", err)
	}
	return e, nil
}

// ResolveTheme is ResolvePrompt for the free-form theme of the upload route.
func (h *Handler) ResolveTheme(theme string) (prompt.Entry, error) {
	e, err := h.catalog.ResolveTheme(theme)
	if err != nil {
		return prompt.Entry{}, newError(KindNotFound, "prompt not found", err)
	}
	return e, nil
}

// Handle edits the input image with the prompt's text and stores the result.
// A generated image whose upload fails is dropped.
func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("handler").With("prompt_id", input.PromptID, "size", len(input.Image))
	log.Info("handling generation request")

	if err := h.CheckReady(); err != nil {
		return Output{}, err
	}

	entry, err := h.ResolvePrompt(input.PromptID)
	if err != nil {
		return Output{}, err
	}
	if len(input.Image) == 0 {
		return Output{}, BadRequest("empty image upload", nil)
	}

	img, err := h.edit(ctx, input, entry.PromptText)
	if err != nil {
		log.Error("image generation failed", "error", err)
		return Output{}, newError(KindGeneration, "image generation failed", err)
	}

	key := ObjectKey(entry.ID)
	url, err := h.upload(ctx, store.UploadParams{
		Name:        key,
		Data:        img,
		ContentType: image.OutputMIMEType,
		Metadata:    toMetadata(entry),
	})
	if err != nil {
		log.Error("upload failed", "key", key, "error", err)
		return Output{}, newError(KindUpload, "file upload failed", err)
	}

	log.Info("stored generated image", "key", key, "url", url)
	return Output{URL: url, Title: entry.Title, Key: key}, nil
}

func (h *Handler) edit(ctx context.Context, input Input, text string) ([]byte, error) {
	if h.generateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.generateTimeout)
		defer cancel()
	}
	return h.editor.Edit(ctx, image.EditParams{Image: input.Image, MIMEType: input.MIMEType, Prompt: text})
}

func (h *Handler) upload(ctx context.Context, params store.UploadParams) (string, error) {
	if h.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.uploadTimeout)
		defer cancel()
	}
	return h.store.Store(ctx, params)
}

// ObjectKey names a generated image: generated_<prompt id>_<8 random hex chars>.png.
func ObjectKey(promptID int) string {
	id := uuid.New()
	return fmt.Sprintf("%s%d_%s.png", store.KeyPrefix, promptID, hex.EncodeToString(id[:4]))
}

func toMetadata(e prompt.Entry) map[string]string {
	return map[string]string{
		"prompt-id":    strconv.Itoa(e.ID),
		"prompt-title": e.Title,
	}
}
