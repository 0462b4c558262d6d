package feed

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/dmorgan81/pawtrait/internal/store"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Generator struct {
	lister store.Lister
	link   string
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	lister, err := do.Invoke[store.Lister](i)
	if err != nil {
		return nil, err
	}
	return &Generator{lister: lister, link: do.MustInvokeNamed[string](i, "site_link")}, nil
}

func New(lister store.Lister, link string) *Generator {
	return &Generator{lister: lister, link: link}
}

// Generate renders the generated images as an RSS feed, newest first.
func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed")
	log.Info("generating rss feed")

	objs, err := g.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	feed := feeds.Feed{
		Title:       "Pawtrait",
		Description: "AI generated pet portraits",
		Link:        &feeds.Link{Href: g.link},
		Updated:     time.Now(),
	}
	feed.Items = lo.Map(objs, func(o store.Object, _ int) *feeds.Item {
		title := lo.Ternary(o.Metadata["prompt-title"] != "", o.Metadata["prompt-title"], o.Key)
		return &feeds.Item{
			Id:      o.Key,
			Title:   title,
			Link:    &feeds.Link{Href: o.URL},
			Content: imageHTML(o.URL, title),
			Updated: o.LastModified,
		}
	})

	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Updated.After(b.Updated)
	})
	log.Info("generated rss feed", "items", len(feed.Items))

	rss, err := feed.ToRss()
	return []byte(rss), err
}

func imageHTML(src, alt string) string {
	return fmt.Sprintf(`<img src="%s" alt="%s"/>`, html.EscapeString(src), html.EscapeString(alt))
}
