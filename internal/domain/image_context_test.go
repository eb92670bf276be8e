package domain

import (
	"math"
	"testing"
)

func TestContextWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range ContextWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("expected weights to sum to 1.0, got %v", sum)
	}
}

func TestCompletenessScore(t *testing.T) {
	tests := []struct {
		name  string
		build func() ImageContext
		want  float64
	}{
		{
			name:  "site topic only",
			build: func() ImageContext { return NewContextBuilder("1", "en", "travel").Build() },
			want:  0.15,
		},
		{
			name:  "no site topic",
			build: func() ImageContext { return NewContextBuilder("1", "en", "  ").Build() },
			want:  0,
		},
		{
			name: "title and filename",
			build: func() ImageContext {
				b := NewContextBuilder("1", "en", "travel")
				b.SetPostTitle("Beach days")
				b.SetFilenameHint("sunset beach")
				return b.Build()
			},
			want: 0.45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build().CompletenessScore()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestContextBuilder_FirstSourceWins(t *testing.T) {
	b := NewContextBuilder("7", "en", "food")
	b.SetPostTitle("From parent post")
	b.SetPostTitle("From filename match")
	b.SetPostTitle("")
	b.SetCurrentAlt("   ")

	ctx := b.Build()
	if ctx.PostTitle != "From parent post" {
		t.Errorf("expected earlier source to win, got %q", ctx.PostTitle)
	}
	if ctx.CurrentAlt != "" {
		t.Errorf("expected blank alt to stay absent, got %q", ctx.CurrentAlt)
	}
}

func TestImageContext_TemplateDataOmitsAbsent(t *testing.T) {
	b := NewContextBuilder("7", "en", "food")
	b.SetPostTags([]string{"pasta", "dinner"})
	b.SetDimensions(1200, 800)
	data := b.Build().TemplateData()

	if _, ok := data[FieldPostTitle]; ok {
		t.Error("expected absent title to be omitted")
	}
	tags, ok := data[FieldPostTags].([]string)
	if !ok || len(tags) != 2 {
		t.Errorf("expected two tags, got %v", data[FieldPostTags])
	}
	if data[FieldOrientation] != "landscape" {
		t.Errorf("expected landscape, got %v", data[FieldOrientation])
	}
}

func TestMetaKeys(t *testing.T) {
	if got := MetaKey(MetaAlt, "cs"); got != "alt_cs" {
		t.Errorf("expected alt_cs, got %q", got)
	}
	if got := DraftKey(MetaTitle, "en"); got != "draft_title_en" {
		t.Errorf("expected draft_title_en, got %q", got)
	}
	if got := SplitKeywords(" a, b ,,c "); len(got) != 3 || got[2] != "c" {
		t.Errorf("unexpected split result: %v", got)
	}
}
