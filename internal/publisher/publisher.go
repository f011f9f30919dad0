// Package publisher moves documents between the private store and the public
// site repository. Publishing emits a static-site post file under _posts/
// with site front matter; unpublishing removes the exact file recorded at
// publish time, so a later title change never strands a published page.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
	"github.com/google/uuid"

	"github.com/halim714/markpress/internal/document"
	"github.com/halim714/markpress/internal/frontmatter"
	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/naming"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/pkg/interfaces"
)

const (
	// RouteGroup and RoutePost name the urlkit route used for permalinks.
	RouteGroup = "site"
	RoutePost  = "post"

	defaultPostsDir = "_posts"
	defaultLayout   = "post"
)

// RouteConfig builds the urlkit configuration for a site hosted at baseURL.
func RouteConfig(baseURL string) *urlkit.Config {
	return &urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    RouteGroup,
				BaseURL: strings.TrimRight(baseURL, "/"),
				Paths: map[string]string{
					RoutePost: "/:year/:month/:day/:slug/",
				},
			},
		},
	}
}

// Options configures a Publisher.
type Options struct {
	PublicStore interfaces.RemoteStore
	Routes      *urlkit.RouteManager
	Resolver    TargetResolver
	PostsDir    string
	Layout      string
	Logger      interfaces.Logger
	Now         func() time.Time
}

// Publisher performs publish and unpublish against the public repository.
type Publisher struct {
	public   interfaces.RemoteStore
	routes   *urlkit.RouteManager
	resolver TargetResolver
	postsDir string
	layout   string
	logger   interfaces.Logger
	now      func() time.Time
}

// New validates options and builds a Publisher.
func New(opts Options) (*Publisher, error) {
	if opts.PublicStore == nil {
		return nil, fmt.Errorf("publisher: public store is required")
	}
	if opts.Routes == nil {
		return nil, fmt.Errorf("publisher: route manager is required")
	}

	postsDir := strings.Trim(opts.PostsDir, "/")
	if postsDir == "" {
		postsDir = defaultPostsDir
	}
	layout := opts.Layout
	if layout == "" {
		layout = defaultLayout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Publisher{
		public:   opts.PublicStore,
		routes:   opts.Routes,
		resolver: opts.Resolver,
		postsDir: postsDir,
		layout:   layout,
		logger:   logger,
		now:      now,
	}, nil
}

// Publish emits doc to the public repository and returns the updated
// document: status published, publish timestamp set, and the emitted file
// path recorded for later unpublish. The first publish fixes the post date;
// republishing keeps it so the permalink stays stable.
func (p *Publisher) Publish(ctx context.Context, doc *interfaces.Document) (*interfaces.Document, error) {
	if doc == nil || doc.ID == uuid.Nil {
		return nil, fmt.Errorf("publisher: document with id is required")
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("publisher: refusing to publish empty document %s", doc.ID)
	}

	out := doc.Clone()
	publishedAt := p.now().UTC()
	if out.PublishedAt != nil {
		publishedAt = out.PublishedAt.UTC()
	}

	slug := naming.Slugify(out.Title)
	newPath := p.postPath(publishedAt, slug)

	permalink, err := p.Permalink(publishedAt, slug)
	if err != nil {
		return nil, err
	}

	body, err := p.renderBody(ctx, out.Content)
	if err != nil {
		return nil, err
	}
	content, err := frontmatter.Stringify([]byte(body), p.publicMetadata(out, publishedAt, permalink))
	if err != nil {
		return nil, fmt.Errorf("publisher: render %s: %w", out.ID, err)
	}

	token, err := p.currentToken(ctx, newPath)
	if err != nil {
		return nil, err
	}
	newToken, err := p.public.Write(ctx, newPath, content, token, publishMessage(out.Title))
	if err != nil {
		return nil, fmt.Errorf("publisher: publish %s: %w", out.ID, err)
	}

	// a title change moves the post; remove the previously emitted file
	if out.PublicPath != "" && out.PublicPath != newPath {
		if err := p.removePublic(ctx, out.PublicPath); err != nil {
			p.logger.Warn("publisher.stale_post_cleanup_failed", "path", out.PublicPath, "error", err.Error())
		}
	}

	out.Status = interfaces.StatusPublished
	out.PublishedAt = &publishedAt
	out.PublicPath = newPath

	p.logger.Info("publisher.published",
		"document_id", out.ID.String(),
		"path", newPath,
		"permalink", permalink,
		"token", newToken,
	)
	return out, nil
}

// Stage computes the publish-time fields without touching the public
// repository. Callers record the staged state in the private file before the
// public write, so a crash in between still leaves the post date on record
// and a later publish emits the same path. The previously emitted path is
// kept so Publish can clean up after a title change.
func (p *Publisher) Stage(doc *interfaces.Document) (*interfaces.Document, error) {
	if doc == nil || doc.ID == uuid.Nil {
		return nil, fmt.Errorf("publisher: document with id is required")
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("publisher: refusing to publish empty document %s", doc.ID)
	}

	out := doc.Clone()
	publishedAt := p.now().UTC()
	if out.PublishedAt != nil {
		publishedAt = out.PublishedAt.UTC()
	}
	out.Status = interfaces.StatusPublished
	out.PublishedAt = &publishedAt
	return out, nil
}

// Unpublish removes the published file. The path recorded at publish time is
// preferred; when absent the path is recomputed from title and publish date.
// A file already gone counts as success.
func (p *Publisher) Unpublish(ctx context.Context, doc *interfaces.Document) (*interfaces.Document, error) {
	if doc == nil || doc.ID == uuid.Nil {
		return nil, fmt.Errorf("publisher: document with id is required")
	}

	out := doc.Clone()
	path := out.PublicPath
	if path == "" && out.PublishedAt != nil {
		path = p.postPath(out.PublishedAt.UTC(), naming.Slugify(out.Title))
	}
	if path == "" {
		return nil, fmt.Errorf("publisher: no published location known for %s", out.ID)
	}

	if err := p.removePublic(ctx, path); err != nil {
		return nil, fmt.Errorf("publisher: unpublish %s: %w", out.ID, err)
	}

	// the publish timestamp survives unpublish so a later republish keeps
	// the original post date and permalink
	out.Status = interfaces.StatusDraft
	out.PublicPath = ""

	p.logger.Info("publisher.unpublished", "document_id", out.ID.String(), "path", path)
	return out, nil
}

// Permalink builds the public site URL for a post.
func (p *Publisher) Permalink(publishedAt time.Time, slug string) (string, error) {
	url, err := p.routes.Group(RouteGroup).Builder(RoutePost).
		WithParam("year", fmt.Sprintf("%04d", publishedAt.Year())).
		WithParam("month", fmt.Sprintf("%02d", int(publishedAt.Month()))).
		WithParam("day", fmt.Sprintf("%02d", publishedAt.Day())).
		WithParam("slug", slug).
		Build()
	if err != nil {
		return "", fmt.Errorf("publisher: build permalink: %w", err)
	}
	return url, nil
}

// PostPath reports the repository path a publish of this document would emit.
func (p *Publisher) PostPath(doc *interfaces.Document) string {
	at := p.now().UTC()
	if doc.PublishedAt != nil {
		at = doc.PublishedAt.UTC()
	}
	return p.postPath(at, naming.Slugify(doc.Title))
}

func (p *Publisher) postPath(at time.Time, slug string) string {
	return fmt.Sprintf("%s/%s-%s.md", p.postsDir, at.Format("2006-01-02"), slug)
}

// renderBody strips any metadata block pasted into the body and rewrites
// internal links. A page must never ship a second front matter block.
func (p *Publisher) renderBody(ctx context.Context, content string) (string, error) {
	_, stripped := frontmatter.Parse([]byte(content))
	return RewriteLinks(ctx, string(stripped), p.resolver)
}

// publicMetadata builds the site front matter: presentation keys plus the
// author's custom keys. Engine bookkeeping (id, timestamps, status) stays in
// the private file only.
func (p *Publisher) publicMetadata(doc *interfaces.Document, publishedAt time.Time, permalink string) map[string]any {
	meta := make(map[string]any, len(doc.FrontMatter)+4)
	for key, value := range doc.FrontMatter {
		if document.IsReserved(key) {
			continue
		}
		meta[key] = value
	}

	meta[document.KeyLayout] = p.layout
	meta[document.KeyTitle] = doc.Title
	meta[document.KeyDate] = publishedAt.Format("2006-01-02 15:04:05 -0700")
	meta[document.KeyPermalink] = sitePath(permalink)
	if len(doc.Tags) > 0 {
		meta[document.KeyTags] = doc.Tags
	}
	return meta
}

func (p *Publisher) currentToken(ctx context.Context, path string) (string, error) {
	file, err := p.public.Read(ctx, path)
	if err != nil {
		if remote.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("publisher: read %s: %w", path, err)
	}
	return file.VersionToken, nil
}

func (p *Publisher) removePublic(ctx context.Context, path string) error {
	file, err := p.public.Read(ctx, path)
	if err != nil {
		if remote.IsNotFound(err) {
			return nil
		}
		return err
	}
	return p.public.Delete(ctx, path, file.VersionToken, unpublishMessage(path))
}

// sitePath reduces an absolute permalink to the site-relative form the static
// site generator expects in front matter.
func sitePath(permalink string) string {
	if idx := strings.Index(permalink, "://"); idx >= 0 {
		rest := permalink[idx+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			return rest[slash:]
		}
		return "/"
	}
	return permalink
}

func publishMessage(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled"
	}
	return fmt.Sprintf("publish: %s", title)
}

func unpublishMessage(path string) string {
	return fmt.Sprintf("unpublish: %s", path)
}
