// Package contextagg gathers the signals known about an image into a
// domain.ImageContext.
package contextagg

import (
	"context"
	"strings"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
)

// ContentReader is the bulk read side of the content repository.
type ContentReader interface {
	BulkGetAttachments(ctx context.Context, ids []string) (map[string]domain.Attachment, error)
	BulkGetPosts(ctx context.Context, ids []string) (map[string]domain.Post, error)
	BulkGetTerms(ctx context.Context, postIDs []string) (map[string][]domain.PostTerm, error)
	BulkGetTranslations(ctx context.Context, groups []string, language string) (map[string]domain.Post, error)
	ListPostSlugs(ctx context.Context, language string) ([]domain.Post, error)
	FindPostsReferencing(ctx context.Context, filenames []string, language string) (map[string]domain.Post, error)
}

// MetadataReader reads metadata of many attachments at once.
type MetadataReader interface {
	BulkGetAll(ctx context.Context, attachmentIDs []string) (map[string]map[string]string, error)
}

// Aggregator builds image contexts. Linked content is found by the
// linkers in order, then every source fills the fields still absent.
type Aggregator struct {
	content         ContentReader
	meta            MetadataReader
	siteTopic       string
	defaultLanguage string
	linkers         []linker
	sources         []signalSource
}

// NewAggregator creates an Aggregator with the default strategies.
func NewAggregator(content ContentReader, meta MetadataReader, settings config.Settings) *Aggregator {
	return &Aggregator{
		content:         content,
		meta:            meta,
		siteTopic:       settings.SiteContext,
		defaultLanguage: settings.DefaultLanguage,
		linkers:         defaultLinkers(),
		sources:         defaultSources(),
	}
}

func (a *Aggregator) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithField(logger.FieldComponent, "contextagg")
}

// Build returns the context of one image. It never fails: sources that
// cannot be read only lower the completeness score.
func (a *Aggregator) Build(ctx context.Context, attachmentID, language string) domain.ImageContext {
	return a.BulkBuild(ctx, []string{attachmentID}, language)[attachmentID]
}

// BulkBuild returns the contexts of many images using shared lookups.
// The result equals calling Build for every id.
func (a *Aggregator) BulkBuild(ctx context.Context, attachmentIDs []string, language string) map[string]domain.ImageContext {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = a.defaultLanguage
	}
	ids := dedupe(attachmentIDs)

	b := &batch{
		language:    language,
		ids:         ids,
		linked:      make(map[string]domain.Post),
		parents:     make(map[string]domain.Post),
		terms:       make(map[string][]domain.PostTerm),
		meta:        make(map[string]map[string]string),
		attachments: make(map[string]domain.Attachment),
		builders:    make(map[string]*domain.ContextBuilder, len(ids)),
	}
	for _, id := range ids {
		b.builders[id] = domain.NewContextBuilder(id, language, a.siteTopic)
	}

	a.prefetch(ctx, b)

	for _, l := range a.linkers {
		pending := b.unlinked()
		if len(pending) == 0 {
			break
		}
		if err := l.Link(ctx, a.content, b, pending); err != nil {
			a.log(ctx).WithError(err).Warnf("Context linker %s failed", l.Name())
		}
	}

	if len(b.linked) > 0 {
		postIDs := make([]string, 0, len(b.linked))
		for _, p := range b.linked {
			postIDs = append(postIDs, p.ID)
		}
		terms, err := a.content.BulkGetTerms(ctx, dedupe(postIDs))
		if err != nil {
			a.log(ctx).WithError(err).Warn("Failed to load post terms")
		} else {
			b.terms = terms
		}
	}

	for _, s := range a.sources {
		for _, id := range ids {
			s.Contribute(b, id, b.builders[id])
		}
	}

	out := make(map[string]domain.ImageContext, len(ids))
	for _, id := range ids {
		out[id] = b.builders[id].Build()
	}

	a.log(ctx).WithFields(logger.Fields{
		logger.FieldCount:    len(ids),
		logger.FieldLanguage: language,
	}).Debugf("Built image contexts (linked=%d)", len(b.linked))
	return out
}

func (a *Aggregator) prefetch(ctx context.Context, b *batch) {
	attachments, err := a.content.BulkGetAttachments(ctx, b.ids)
	if err != nil {
		a.log(ctx).WithError(err).Warn("Failed to load attachments")
	} else {
		b.attachments = attachments
	}

	meta, err := a.meta.BulkGetAll(ctx, b.ids)
	if err != nil {
		a.log(ctx).WithError(err).Warn("Failed to load attachment metadata")
	} else {
		b.meta = meta
	}
}

// batch is the shared state of one BulkBuild call.
type batch struct {
	language    string
	ids         []string
	attachments map[string]domain.Attachment
	parents     map[string]domain.Post
	linked      map[string]domain.Post
	terms       map[string][]domain.PostTerm
	meta        map[string]map[string]string
	builders    map[string]*domain.ContextBuilder
}

func (b *batch) unlinked() []string {
	var out []string
	for _, id := range b.ids {
		if _, ok := b.linked[id]; !ok {
			if _, known := b.attachments[id]; known {
				out = append(out, id)
			}
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
