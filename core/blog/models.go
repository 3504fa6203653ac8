package blog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

// Post statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Post struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	CoverImageURL string     `json:"cover_image_url"`
	Tags          []string   `json:"tags"`
	Status        string     `json:"status"`
	PublishedAt   *time.Time `json:"published_at"`
	AuthorID      string     `json:"author_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p Post) IsPublished() bool { return p.Status == StatusPublished }

type NewPost struct {
	Title         string   `json:"title" validate:"required,max=255"`
	Slug          string   `json:"slug" validate:"omitempty,max=255,slug"`
	Excerpt       string   `json:"excerpt" validate:"max=500"`
	Content       string   `json:"content" validate:"required"`
	CoverImageURL string   `json:"cover_image_url" validate:"omitempty,max=1024"`
	Tags          []string `json:"tags" validate:"max=20,dive,required,max=50"`
	Status        string   `json:"status" validate:"omitempty,oneof=draft published"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Slug = core.CleanString(np.Slug, true /* lower */)
	np.Tags = cleanTags(np.Tags)
	if np.Status == "" {
		np.Status = StatusDraft
	}
	return validate.Struct(np)
}

type UpdatePost struct {
	Title         *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Slug          *string  `json:"slug" validate:"omitempty,max=255,slug"`
	Excerpt       *string  `json:"excerpt" validate:"omitempty,max=500"`
	Content       *string  `json:"content"`
	CoverImageURL *string  `json:"cover_image_url" validate:"omitempty,max=1024"`
	Tags          []string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	Status        *string  `json:"status" validate:"omitempty,oneof=draft published"`
}

func (up *UpdatePost) Validate(validate *validator.Validate) error {
	if up.Title != nil {
		*up.Title = core.CleanString(*up.Title)
	}
	if up.Slug != nil {
		*up.Slug = core.CleanString(*up.Slug, true /* lower */)
	}
	if up.Tags != nil {
		up.Tags = cleanTags(up.Tags)
	}
	return validate.Struct(up)
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = core.CleanString(t, true /* lower */)
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		cleaned = append(cleaned, t)
	}
	return cleaned
}

type QueryFilter struct {
	Search   string `query:"search"`
	Tag      string `query:"tag"`
	Status   string `query:"status"`
	AuthorID string `query:"author_id"`
}
