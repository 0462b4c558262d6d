package inject

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmorgan81/pawtrait/internal/api"
	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/handler"
	"github.com/dmorgan81/pawtrait/internal/prompt"
	"github.com/dmorgan81/pawtrait/internal/store"
	"github.com/samber/do"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	prompts := filepath.Join(dir, "prompts.json")
	doc := `[{"id": 1, "title": "Astronaut", "promptText": "space suit"}]`
	if err := os.WriteFile(prompts, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		PromptsFile:        prompts,
		ImagenModel:        "imagen-3.0-capability-001",
		StorageBackend:     config.BackendFile,
		FileStoreDir:       filepath.Join(dir, "generated"),
		Bucket:             "pets",
		PublicBaseURL:      "http://localhost:8080",
		MaxUploadBytes:     1 << 20,
		CORSAllowedOrigins: []string{"*"},
	}
}

func TestSetupFileBackend(t *testing.T) {
	injector := Setup(context.Background(), fileConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	catalog, err := do.Invoke[*prompt.Catalog](injector)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if got := len(catalog.List()); got != 1 {
		t.Fatalf("catalog has %d entries, want 1", got)
	}

	s, err := do.Invoke[store.Store](injector)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, ok := s.(*store.FileStore); !ok {
		t.Fatalf("store is %T, want *store.FileStore", s)
	}

	// Without Google settings the editor stays uninitialized.
	h := do.MustInvoke[*handler.Handler](injector)
	if h.Ready() {
		t.Fatal("handler should not be ready without an image editor")
	}

	srv := do.MustInvoke[*api.API](injector).Routes()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed.rss", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("feed = %d, want 200", rec.Code)
	}
}

func TestSetupMissingCatalog(t *testing.T) {
	cfg := fileConfig(t)
	cfg.PromptsFile = filepath.Join(t.TempDir(), "missing.json")
	injector := Setup(context.Background(), cfg)
	if _, err := do.Invoke[*prompt.Catalog](injector); err == nil {
		t.Fatal("expected error for missing catalog")
	}
}

func TestSetupS3WithoutConfig(t *testing.T) {
	cfg := fileConfig(t)
	cfg.StorageBackend = config.BackendS3
	injector := Setup(context.Background(), cfg)
	if _, err := do.Invoke[store.Store](injector); err == nil {
		t.Fatal("expected error for unconfigured s3 store")
	}
}
