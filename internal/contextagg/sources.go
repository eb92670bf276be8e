package contextagg

import (
	"github.com/timmy/altseo/internal/domain"
)

// signalSource contributes fields of one image. Builders ignore values
// for fields an earlier source already set.
type signalSource interface {
	Name() string
	Contribute(b *batch, attachmentID string, cb *domain.ContextBuilder)
}

// defaultSources returns the sources in priority order.
func defaultSources() []signalSource {
	return []signalSource{
		linkedContentSource{},
		filenameSource{},
		exifSource{},
		labelSource{},
	}
}

type linkedContentSource struct{}

func (linkedContentSource) Name() string { return "linked_content" }

func (linkedContentSource) Contribute(b *batch, id string, cb *domain.ContextBuilder) {
	post, ok := b.linked[id]
	if !ok {
		return
	}
	cb.SetPostTitle(post.Title)
	cb.SetPostExcerpt(post.Excerpt)

	var categories, tags []string
	for _, t := range b.terms[post.ID] {
		switch t.Taxonomy {
		case domain.TaxonomyCategory:
			categories = append(categories, t.Name)
		case domain.TaxonomyTag:
			tags = append(tags, t.Name)
		}
	}
	cb.SetPostCategories(categories)
	cb.SetPostTags(tags)
}

type filenameSource struct{}

func (filenameSource) Name() string { return "filename" }

func (filenameSource) Contribute(b *batch, id string, cb *domain.ContextBuilder) {
	if a, ok := b.attachments[id]; ok {
		cb.SetFilenameHint(FilenameHint(a.Filename))
	}
}

// exifSource reads the embedded metadata captured at upload.
type exifSource struct{}

func (exifSource) Name() string { return "exif" }

func (exifSource) Contribute(b *batch, id string, cb *domain.ContextBuilder) {
	a, ok := b.attachments[id]
	if !ok {
		return
	}
	cb.SetCamera(a.Camera)
	cb.SetLocation(a.Location)
	cb.SetDateTaken(a.DateTaken)
	cb.SetCopyright(a.Copyright)
	cb.SetDimensions(a.Width, a.Height)
}

// labelSource reads the current alt text in the requested language.
type labelSource struct{}

func (labelSource) Name() string { return "labels" }

func (labelSource) Contribute(b *batch, id string, cb *domain.ContextBuilder) {
	cb.SetCurrentAlt(b.meta[id][domain.MetaKey(domain.MetaAlt, b.language)])
}
