package domain

import (
	"strings"
	"time"
)

// Attachment is an image record owned by the host content repository.
type Attachment struct {
	ID               string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	ParentID         string    `gorm:"type:varchar(64);index" json:"parent_id,omitempty"`
	Filename         string    `gorm:"type:text;not null" json:"filename"`
	MimeType         string    `gorm:"type:text" json:"mime_type"`
	StorageKey       string    `gorm:"type:text" json:"storage_key"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	Language         string    `gorm:"type:varchar(16)" json:"language,omitempty"`
	TranslationGroup string    `gorm:"type:varchar(64);index" json:"translation_group,omitempty"`
	Camera           string    `gorm:"type:text" json:"camera,omitempty"`
	Location         string    `gorm:"type:text" json:"location,omitempty"`
	DateTaken        string    `gorm:"type:text" json:"date_taken,omitempty"`
	Copyright        string    `gorm:"type:text" json:"copyright,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string {
	return "attachments"
}

// Post is a content item an image may be linked to.
type Post struct {
	ID               string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Title            string    `gorm:"type:text" json:"title"`
	Slug             string    `gorm:"type:varchar(191);index" json:"slug"`
	Excerpt          string    `gorm:"type:text" json:"excerpt"`
	Content          string    `gorm:"type:text" json:"-"`
	Language         string    `gorm:"type:varchar(16);index" json:"language"`
	TranslationGroup string    `gorm:"type:varchar(64);index" json:"translation_group,omitempty"`
	Status           string    `gorm:"type:varchar(32);default:publish" json:"status"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "posts"
}

// Taxonomy names used by PostTerm.
const (
	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"
)

// PostTerm links a post to a category or tag.
type PostTerm struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	PostID   string `gorm:"type:varchar(64);not null;index" json:"post_id"`
	Taxonomy string `gorm:"type:varchar(32);not null" json:"taxonomy"`
	Name     string `gorm:"type:text;not null" json:"name"`
}

// TableName returns the database table name for PostTerm.
func (PostTerm) TableName() string {
	return "post_terms"
}

// MetadataEntry is one key/value metadata field of an attachment.
// Keys follow the "{field}_{language}" convention.
type MetadataEntry struct {
	AttachmentID string    `gorm:"type:varchar(64);primaryKey" json:"attachment_id"`
	Key          string    `gorm:"column:meta_key;type:varchar(191);primaryKey" json:"key"`
	Value        string    `gorm:"column:meta_value;type:text" json:"value"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for MetadataEntry.
func (MetadataEntry) TableName() string {
	return "attachment_meta"
}

// draftPrefix marks keys of the draft slot.
const draftPrefix = "draft_"

// MetaKey builds the "{field}_{language}" key.
func MetaKey(field, language string) string {
	return field + "_" + language
}

// DraftKey builds the draft slot key of a field.
func DraftKey(field, language string) string {
	return draftPrefix + MetaKey(field, language)
}

// JoinKeywords renders keywords the way they are stored.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// SplitKeywords parses stored keywords.
func SplitKeywords(value string) []string {
	var out []string
	for _, k := range strings.Split(value, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
