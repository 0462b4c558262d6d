package api

import (
	"log/slog"
	"net/http"

	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/feed"
	"github.com/dmorgan81/pawtrait/internal/handler"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/dmorgan81/pawtrait/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	// FileRoot is served under /files/ when set.
	FileRoot string
	Logger   *slog.Logger
}

type API struct {
	handler *handler.Handler
	feed    *feed.Generator
	opts    Options
}

func New(h *handler.Handler, f *feed.Generator, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &API{handler: h, feed: f, opts: opts}
}

func NewAPI(i *do.Injector) (*API, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	opts := Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	}
	if cfg.StorageBackend == config.BackendFile {
		if fs, err := do.Invoke[*store.FileStore](i); err == nil {
			opts.FileRoot = fs.Root()
		}
	}

	f, err := do.Invoke[*feed.Generator](i)
	if err != nil {
		logger.Warn("gallery feed unavailable", "error", err)
		f = nil
	}
	return New(do.MustInvoke[*handler.Handler](i), f, opts), nil
}

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(a.opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(corsOptions(a.opts.AllowedOrigins)).Handler)

	r.Get("/", a.rootHandler)
	r.Get("/readyz", a.readyHandler)
	r.Get("/prompts", a.promptsHandler)
	r.Post("/generate-image", a.generateImageHandler)
	r.Post("/upload", a.uploadHandler)
	r.Get("/feed.rss", a.feedHandler)

	if a.opts.FileRoot != "" {
		r.Handle(store.FilesPath+"*", http.StripPrefix(store.FilesPath, http.FileServer(http.Dir(a.opts.FileRoot))))
	}

	return r
}

// corsOptions echoes the request origin rather than a literal "*" when any
// origin is allowed; credentialed requests need an explicit origin.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	if lo.Contains(origins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	return opts
}
