package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// FilesPath is the URL prefix FileStore objects are served under.
const FilesPath = "/files/"

const metadataSuffix = ".meta.json"

// FileStore keeps objects on local disk under Dir/Bucket, for development
// without a Supabase project.
type FileStore struct {
	Dir     string
	Bucket  string
	BaseURL string
}

func NewFileStore(i *do.Injector) (*FileStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if missing := cfg.MissingStore(); len(missing) > 0 {
		return nil, fmt.Errorf("storage not configured, missing %v", missing)
	}
	s := &FileStore{Dir: cfg.FileStoreDir, Bucket: cfg.Bucket, BaseURL: cfg.PublicBaseURL}
	if err := os.MkdirAll(s.root(), 0o755); err != nil {
		return nil, fmt.Errorf("create file store: %w", err)
	}
	return s, nil
}

func (s *FileStore) root() string {
	return filepath.Join(s.Dir, s.Bucket)
}

// Root is the directory served under FilesPath.
func (s *FileStore) Root() string {
	return s.Dir
}

func (s *FileStore) PublicURL(key string) string {
	return strings.TrimRight(s.BaseURL, "/") + FilesPath + s.Bucket + "/" + key
}

func (s *FileStore) Store(ctx context.Context, params UploadParams) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("file")
	log.Info("writing", "file", params.Name)

	if params.Name == "" || filepath.Base(params.Name) != params.Name || strings.HasPrefix(params.Name, ".") {
		return "", fmt.Errorf("invalid object name %q", params.Name)
	}
	path := filepath.Join(s.root(), params.Name)
	if err := os.WriteFile(path, params.Data, 0o644); err != nil {
		return "", err
	}
	if len(params.Metadata) > 0 {
		meta, err := json.Marshal(params.Metadata)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(path+metadataSuffix, meta, 0o644); err != nil {
			return "", err
		}
	}
	return s.PublicURL(params.Name), nil
}

func (s *FileStore) List(ctx context.Context) ([]Object, error) {
	log.FromContextOrDiscard(ctx).WithGroup("file").Info("listing generated objects", "dir", s.root())

	entries, err := os.ReadDir(s.root())
	if err != nil {
		return nil, err
	}
	entries = lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && strings.HasPrefix(e.Name(), KeyPrefix) && strings.HasSuffix(e.Name(), ".png")
	})

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		obj := Object{
			Key:          e.Name(),
			URL:          s.PublicURL(e.Name()),
			LastModified: info.ModTime(),
		}
		if meta, err := os.ReadFile(filepath.Join(s.root(), e.Name()+metadataSuffix)); err == nil {
			_ = json.Unmarshal(meta, &obj.Metadata)
		}
		objects = append(objects, obj)
	}
	slices.SortFunc(objects, func(a, b Object) int { return strings.Compare(a.Key, b.Key) })
	return objects, nil
}
