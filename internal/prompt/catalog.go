package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var ErrNotFound = errors.New("prompt not found")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Entry is one theme of the catalog. PromptText is sent to the image model verbatim.
type Entry struct {
	ID         int    `json:"id" validate:"gt=0"`
	Title      string `json:"title" validate:"required"`
	PromptText string `json:"promptText" validate:"required"`
}

// Summary is the client-facing projection of an Entry.
type Summary struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	entries []Entry
	byID    map[int]Entry
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompt catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Catalog, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("prompt catalog is empty")
	}

	byID := make(map[int]Entry, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("prompt catalog entry %d: %w", i, err)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("prompt catalog entry %d: duplicate id %d", i, e.ID)
		}
		byID[e.ID] = e
	}
	return &Catalog{entries: entries, byID: byID}, nil
}

func (c *Catalog) List() []Summary {
	return lo.Map(c.entries, func(e Entry, _ int) Summary {
		return Summary{ID: e.ID, Title: e.Title}
	})
}

func (c *Catalog) Entry(id int) (Entry, error) {
	e, ok := c.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return e, nil
}

func (c *Catalog) Resolve(id int) (string, error) {
	e, err := c.Entry(id)
	if err != nil {
		return "", err
	}
	return e.PromptText, nil
}

// ResolveTheme matches theme against entry ids first, then titles ignoring case.
func (c *Catalog) ResolveTheme(theme string) (Entry, error) {
	theme = strings.TrimSpace(theme)
	if id, err := strconv.Atoi(theme); err == nil {
		return c.Entry(id)
	}
	e, ok := lo.Find(c.entries, func(e Entry) bool {
		return strings.EqualFold(e.Title, theme)
	})
	if !ok {
		return Entry{}, fmt.Errorf("%w: theme %q", ErrNotFound, theme)
	}
	return e, nil
}
