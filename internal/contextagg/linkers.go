package contextagg

import (
	"context"
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/timmy/altseo/internal/domain"
)

// linker finds the post an image belongs to. Linkers only see the
// images no earlier linker has linked.
type linker interface {
	Name() string
	Link(ctx context.Context, content ContentReader, b *batch, pending []string) error
}

// defaultLinkers returns the linkers in priority order.
func defaultLinkers() []linker {
	return []linker{
		parentLinker{},
		translationLinker{},
		foreignParentLinker{},
		filenameLinker{minSimilarity: 0.75},
		usageLinker{},
	}
}

// parentLinker links the direct parent when it is written in the
// requested language or has no language.
type parentLinker struct{}

func (parentLinker) Name() string { return "parent" }

func (parentLinker) Link(ctx context.Context, content ContentReader, b *batch, pending []string) error {
	var parentIDs []string
	for _, id := range pending {
		if p := b.attachments[id].ParentID; p != "" {
			parentIDs = append(parentIDs, p)
		}
	}
	if len(parentIDs) == 0 {
		return nil
	}
	posts, err := content.BulkGetPosts(ctx, dedupe(parentIDs))
	if err != nil {
		return err
	}
	for _, id := range pending {
		post, ok := posts[b.attachments[id].ParentID]
		if !ok {
			continue
		}
		b.parents[id] = post
		if post.Language == "" || post.Language == b.language {
			b.linked[id] = post
		}
	}
	return nil
}

// translationLinker links the translation of a foreign-language parent.
type translationLinker struct{}

func (translationLinker) Name() string { return "translation" }

func (translationLinker) Link(ctx context.Context, content ContentReader, b *batch, pending []string) error {
	var groups []string
	for _, id := range pending {
		if p, ok := b.parents[id]; ok && p.TranslationGroup != "" {
			groups = append(groups, p.TranslationGroup)
		}
	}
	if len(groups) == 0 {
		return nil
	}
	translations, err := content.BulkGetTranslations(ctx, dedupe(groups), b.language)
	if err != nil {
		return err
	}
	for _, id := range pending {
		p, ok := b.parents[id]
		if !ok {
			continue
		}
		if t, found := translations[p.TranslationGroup]; found {
			b.linked[id] = t
		}
	}
	return nil
}

// foreignParentLinker keeps the parent even without a translation.
type foreignParentLinker struct{}

func (foreignParentLinker) Name() string { return "foreign_parent" }

func (foreignParentLinker) Link(_ context.Context, _ ContentReader, b *batch, pending []string) error {
	for _, id := range pending {
		if p, ok := b.parents[id]; ok {
			b.linked[id] = p
		}
	}
	return nil
}

// filenameLinker links unattached images to the post whose slug is
// closest to the image filename.
type filenameLinker struct {
	minSimilarity float64
}

func (filenameLinker) Name() string { return "filename_match" }

func (l filenameLinker) Link(ctx context.Context, content ContentReader, b *batch, pending []string) error {
	posts, err := content.ListPostSlugs(ctx, b.language)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}
	for _, id := range pending {
		slug := slugify(FilenameHint(b.attachments[id].Filename))
		if slug == "" {
			continue
		}
		if post, ok := l.best(slug, posts); ok {
			b.linked[id] = post
		}
	}
	return nil
}

func (l filenameLinker) best(slug string, posts []domain.Post) (domain.Post, bool) {
	var (
		best    domain.Post
		bestSim float64
	)
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		if sim := similarity(slug, p.Slug); sim > bestSim {
			best, bestSim = p, sim
		}
	}
	return best, bestSim >= l.minSimilarity
}

// usageLinker links images to the post whose body embeds the file.
type usageLinker struct{}

func (usageLinker) Name() string { return "usage_search" }

func (usageLinker) Link(ctx context.Context, content ContentReader, b *batch, pending []string) error {
	byName := make(map[string][]string)
	var names []string
	for _, id := range pending {
		name := b.attachments[id].Filename
		if name == "" {
			continue
		}
		if _, ok := byName[name]; !ok {
			names = append(names, name)
		}
		byName[name] = append(byName[name], id)
	}
	if len(names) == 0 {
		return nil
	}
	refs, err := content.FindPostsReferencing(ctx, names, b.language)
	if err != nil {
		return err
	}
	for name, post := range refs {
		for _, id := range byName[name] {
			b.linked[id] = post
		}
	}
	return nil
}

// similarity is 1 minus the normalized edit distance.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.Distance(a, b))/float64(longest)
}

func slugify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
