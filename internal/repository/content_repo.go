package repository

import (
	"context"
	"strings"

	"github.com/timmy/altseo/internal/domain"
	"gorm.io/gorm"
)

// ContentRepository reads attachments, posts and terms in bulk.
type ContentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ContentRepository: repository instance bound to db.
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// CreateAttachment inserts an attachment record.
func (r *ContentRepository) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// CreatePost inserts a post and its terms.
func (r *ContentRepository) CreatePost(ctx context.Context, p *domain.Post, terms ...domain.PostTerm) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if len(terms) == 0 {
			return nil
		}
		for i := range terms {
			terms[i].PostID = p.ID
		}
		return tx.Create(&terms).Error
	})
}

// GetAttachment retrieves an attachment by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: attachment ID.
// Returns:
//   - *domain.Attachment: attachment record if found.
//   - error: gorm.ErrRecordNotFound if missing.
func (r *ContentRepository) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// BulkGetAttachments returns the attachments found among ids, keyed by ID.
func (r *ContentRepository) BulkGetAttachments(ctx context.Context, ids []string) (map[string]domain.Attachment, error) {
	out := make(map[string]domain.Attachment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Attachment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.ID] = a
	}
	return out, nil
}

// BulkGetPosts returns the posts found among ids, keyed by ID.
func (r *ContentRepository) BulkGetPosts(ctx context.Context, ids []string) (map[string]domain.Post, error) {
	out := make(map[string]domain.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// BulkGetTerms returns the terms of many posts, keyed by post ID.
func (r *ContentRepository) BulkGetTerms(ctx context.Context, postIDs []string) (map[string][]domain.PostTerm, error) {
	out := make(map[string][]domain.PostTerm, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []domain.PostTerm
	if err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, t := range rows {
		out[t.PostID] = append(out[t.PostID], t)
	}
	return out, nil
}

// BulkGetTranslations returns, per translation group, the published post
// written in language.
func (r *ContentRepository) BulkGetTranslations(ctx context.Context, groups []string, language string) (map[string]domain.Post, error) {
	out := make(map[string]domain.Post, len(groups))
	if len(groups) == 0 {
		return out, nil
	}
	var rows []domain.Post
	err := r.db.WithContext(ctx).
		Where("translation_group IN ? AND language = ? AND status = ?", groups, language, "publish").
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		if _, ok := out[p.TranslationGroup]; !ok {
			out[p.TranslationGroup] = p
		}
	}
	return out, nil
}

// ListPostSlugs returns the published posts of a language without their bodies.
// An empty language lists every language.
func (r *ContentRepository) ListPostSlugs(ctx context.Context, language string) ([]domain.Post, error) {
	query := r.db.WithContext(ctx).Model(&domain.Post{}).
		Select("id", "title", "slug", "language", "translation_group").
		Where("status = ?", "publish")
	if language != "" {
		query = query.Where("language = ?", language)
	}
	var rows []domain.Post
	if err := query.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindPostsReferencing finds, for each filename, the most recently updated
// published post whose body mentions it.
func (r *ContentRepository) FindPostsReferencing(ctx context.Context, filenames []string, language string) (map[string]domain.Post, error) {
	out := make(map[string]domain.Post, len(filenames))
	var (
		clauses []string
		args    []interface{}
	)
	for _, name := range filenames {
		if name == "" {
			continue
		}
		clauses = append(clauses, "content LIKE ?")
		args = append(args, "%"+name+"%")
	}
	if len(clauses) == 0 {
		return out, nil
	}

	query := r.db.WithContext(ctx).Where("status = ?", "publish").
		Where(strings.Join(clauses, " OR "), args...)
	if language != "" {
		query = query.Where("language = ?", language)
	}
	var rows []domain.Post
	if err := query.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, name := range filenames {
		for _, p := range rows {
			if name != "" && strings.Contains(p.Content, name) {
				out[name] = p
				break
			}
		}
	}
	return out, nil
}

// ListAttachmentsMissingMeta returns attachments with no non-empty value
// under the given metadata key, oldest first.
func (r *ContentRepository) ListAttachmentsMissingMeta(ctx context.Context, key string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	sub := r.db.Model(&domain.MetadataEntry{}).
		Select("1").
		Where("attachment_meta.attachment_id = attachments.id AND meta_key = ? AND meta_value <> ''", key)

	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Attachment{}).
		Where("NOT EXISTS (?)", sub).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
