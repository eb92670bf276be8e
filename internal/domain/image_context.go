package domain

import (
	"math"
	"strconv"
	"strings"
)

// Context field names. They double as prompt template keys.
const (
	FieldSiteTopic      = "site_topic"
	FieldPostTitle      = "post_title"
	FieldPostExcerpt    = "post_excerpt"
	FieldPostCategories = "post_categories"
	FieldPostTags       = "post_tags"
	FieldFilenameHint   = "filename_hint"
	FieldCamera         = "camera"
	FieldLocation       = "location"
	FieldDateTaken      = "date_taken"
	FieldCopyright      = "copyright"
	FieldCurrentAlt     = "current_alt"
	FieldDimensions     = "dimensions"
	FieldOrientation    = "orientation"
)

// ContextWeights are the per-field completeness weights. They sum to 1.0.
// Orientation is derived from the dimensions and carries no weight of its own.
var ContextWeights = map[string]float64{
	FieldSiteTopic:      0.15,
	FieldPostTitle:      0.20,
	FieldPostExcerpt:    0.15,
	FieldPostCategories: 0.10,
	FieldPostTags:       0.10,
	FieldFilenameHint:   0.10,
	FieldCurrentAlt:     0.05,
	FieldDimensions:     0.05,
	FieldCamera:         0.03,
	FieldLocation:       0.03,
	FieldDateTaken:      0.02,
	FieldCopyright:      0.02,
}

// ImageContext is the flat record of signals gathered about one image.
// Every optional field is either absent (zero value) or non-empty.
// Instances are built by ContextBuilder and treated as read-only afterwards.
type ImageContext struct {
	AttachmentID string `json:"attachment_id"`
	Language     string `json:"language"`
	SiteTopic    string `json:"site_topic,omitempty"`

	PostTitle      string   `json:"post_title,omitempty"`
	PostExcerpt    string   `json:"post_excerpt,omitempty"`
	PostCategories []string `json:"post_categories,omitempty"`
	PostTags       []string `json:"post_tags,omitempty"`

	FilenameHint string `json:"filename_hint,omitempty"`

	Camera    string `json:"camera,omitempty"`
	Location  string `json:"location,omitempty"`
	DateTaken string `json:"date_taken,omitempty"`
	Copyright string `json:"copyright,omitempty"`

	CurrentAlt  string `json:"current_alt,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

// Present reports which weighted fields carry a value.
func (c ImageContext) Present() map[string]bool {
	return map[string]bool{
		FieldSiteTopic:      c.SiteTopic != "",
		FieldPostTitle:      c.PostTitle != "",
		FieldPostExcerpt:    c.PostExcerpt != "",
		FieldPostCategories: len(c.PostCategories) > 0,
		FieldPostTags:       len(c.PostTags) > 0,
		FieldFilenameHint:   c.FilenameHint != "",
		FieldCurrentAlt:     c.CurrentAlt != "",
		FieldDimensions:     c.Width > 0 && c.Height > 0,
		FieldCamera:         c.Camera != "",
		FieldLocation:       c.Location != "",
		FieldDateTaken:      c.DateTaken != "",
		FieldCopyright:      c.Copyright != "",
	}
}

// CompletenessScore applies ContextWeights to the present fields.
// The result is rounded to 2 decimals and lies in [0,1].
func (c ImageContext) CompletenessScore() float64 {
	var score float64
	for field, ok := range c.Present() {
		if ok {
			score += ContextWeights[field]
		}
	}
	score = math.Round(score*100) / 100
	return math.Min(1, math.Max(0, score))
}

// TemplateData flattens the context into prompt template variables.
// Absent fields are omitted so that conditional blocks evaluate to false.
func (c ImageContext) TemplateData() map[string]interface{} {
	data := map[string]interface{}{
		"attachment_id": c.AttachmentID,
		"language":      c.Language,
	}
	putString := func(key, val string) {
		if val != "" {
			data[key] = val
		}
	}
	putString(FieldSiteTopic, c.SiteTopic)
	putString(FieldPostTitle, c.PostTitle)
	putString(FieldPostExcerpt, c.PostExcerpt)
	putString(FieldFilenameHint, c.FilenameHint)
	putString(FieldCamera, c.Camera)
	putString(FieldLocation, c.Location)
	putString(FieldDateTaken, c.DateTaken)
	putString(FieldCopyright, c.Copyright)
	putString(FieldCurrentAlt, c.CurrentAlt)
	putString(FieldOrientation, c.Orientation)
	if len(c.PostCategories) > 0 {
		data[FieldPostCategories] = append([]string(nil), c.PostCategories...)
	}
	if len(c.PostTags) > 0 {
		data[FieldPostTags] = append([]string(nil), c.PostTags...)
	}
	if c.Width > 0 && c.Height > 0 {
		data["width"] = c.Width
		data["height"] = c.Height
		data[FieldDimensions] = strconv.Itoa(c.Width) + "x" + strconv.Itoa(c.Height)
	}
	return data
}

// ContextBuilder accumulates signals for one image. Setters only fill
// fields that are still absent, so an earlier (higher priority) source
// always wins over a later one.
type ContextBuilder struct {
	c ImageContext
}

// NewContextBuilder starts a context for an attachment in a language.
func NewContextBuilder(attachmentID, language, siteTopic string) *ContextBuilder {
	return &ContextBuilder{c: ImageContext{
		AttachmentID: attachmentID,
		Language:     language,
		SiteTopic:    strings.TrimSpace(siteTopic),
	}}
}

func fill(dst *string, val string) {
	if *dst == "" {
		*dst = strings.TrimSpace(val)
	}
}

func fillList(dst *[]string, vals []string) {
	if len(*dst) > 0 {
		return
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func (b *ContextBuilder) SetPostTitle(v string) { fill(&b.c.PostTitle, v) }
func (b *ContextBuilder) SetPostExcerpt(v string) { fill(&b.c.PostExcerpt, v) }
func (b *ContextBuilder) SetPostCategories(v []string) { fillList(&b.c.PostCategories, v) }
func (b *ContextBuilder) SetPostTags(v []string) { fillList(&b.c.PostTags, v) }
func (b *ContextBuilder) SetFilenameHint(v string) { fill(&b.c.FilenameHint, v) }
func (b *ContextBuilder) SetCamera(v string) { fill(&b.c.Camera, v) }
func (b *ContextBuilder) SetLocation(v string) { fill(&b.c.Location, v) }
func (b *ContextBuilder) SetDateTaken(v string) { fill(&b.c.DateTaken, v) }
func (b *ContextBuilder) SetCopyright(v string) { fill(&b.c.Copyright, v) }
func (b *ContextBuilder) SetCurrentAlt(v string) { fill(&b.c.CurrentAlt, v) }
func (b *ContextBuilder) HasLinkedContent() bool { return b.c.PostTitle != "" }

// SetDimensions records width/height and derives the orientation.
func (b *ContextBuilder) SetDimensions(width, height int) {
	if b.c.Width > 0 || width <= 0 || height <= 0 {
		return
	}
	b.c.Width, b.c.Height = width, height
	switch {
	case width > height:
		b.c.Orientation = "landscape"
	case height > width:
		b.c.Orientation = "portrait"
	default:
		b.c.Orientation = "square"
	}
}

// Build returns a copy of the accumulated context.
func (b *ContextBuilder) Build() ImageContext {
	out := b.c
	out.PostCategories = append([]string(nil), b.c.PostCategories...)
	out.PostTags = append([]string(nil), b.c.PostTags...)
	if len(out.PostCategories) == 0 {
		out.PostCategories = nil
	}
	if len(out.PostTags) == 0 {
		out.PostTags = nil
	}
	return out
}
