package blog

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewError(core.KindNotFound, "post not found")
	ErrForbidden  = core.NewError(core.KindForbidden, "you are not allowed to manage this post")
	ErrSlugExists = core.NewError(core.KindConflict, "a post with this slug already exists")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post) (Post, error)
		GetPost(ctx context.Context, id, slug string) (Post, error)
		QueryPosts(ctx context.Context, filter QueryFilter, page core.Pagination) ([]Post, int64, error)
		UpdatePost(ctx context.Context, p Post) (Post, error)
		DeletePost(ctx context.Context, id string) error
		SlugExists(ctx context.Context, slug, excludedID string) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, np NewPost) (Post, error)
		// GetBySlug returns a published post, or a draft to its author and admins.
		GetBySlug(ctx context.Context, actor *user.User, slug string) (Post, error)
		Query(ctx context.Context, actor *user.User, filter QueryFilter, page core.Pagination) ([]Post, int64, error)
		Update(ctx context.Context, actor user.User, id string, up UpdatePost) (Post, error)
		Delete(ctx context.Context, actor user.User, id string) error
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Create(ctx context.Context, actor user.User, np NewPost) (Post, error) {
	if !actor.CanAuthor() {
		return Post{}, ErrForbidden
	}
	base := np.Slug
	if base == "" {
		base = np.Title
	}
	slug, err := svc.uniqueSlug(ctx, core.Slugify(base))
	if err != nil {
		return Post{}, err
	}

	now := time.Now().UTC()
	p := Post{
		Title:         np.Title,
		Slug:          slug,
		Excerpt:       np.Excerpt,
		Content:       np.Content,
		CoverImageURL: np.CoverImageURL,
		Tags:          np.Tags,
		Status:        np.Status,
		AuthorID:      actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.IsPublished() {
		p.PublishedAt = &now
	}
	return svc.repo.CreatePost(ctx, p)
}

func (svc *service) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := svc.repo.SlugExists(ctx, slug, "")
		if err != nil {
			return "", pkgerrors.Wrap(err, "checking slug")
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (svc *service) GetBySlug(ctx context.Context, actor *user.User, slug string) (Post, error) {
	p, err := svc.repo.GetPost(ctx, "", core.CleanString(slug, true /* lower */))
	if err != nil {
		return Post{}, err
	}
	if !p.IsPublished() && (actor == nil || !actor.CanManage(p.AuthorID)) {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (svc *service) Query(ctx context.Context, actor *user.User, filter QueryFilter, page core.Pagination) ([]Post, int64, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Tag = core.CleanString(filter.Tag, true /* lower */)
	switch {
	case actor != nil && actor.IsAdmin():
	case actor != nil && actor.CanAuthor() && filter.AuthorID == actor.ID:
	default:
		filter.Status = StatusPublished
	}
	page.Clean()
	return svc.repo.QueryPosts(ctx, filter, page)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, up UpdatePost) (Post, error) {
	p, err := svc.repo.GetPost(ctx, id, "")
	if err != nil {
		return Post{}, err
	}
	if !actor.CanManage(p.AuthorID) {
		return Post{}, ErrForbidden
	}

	if up.Title != nil {
		p.Title = *up.Title
	}
	if up.Slug != nil && *up.Slug != p.Slug {
		exists, err := svc.repo.SlugExists(ctx, *up.Slug, p.ID)
		if err != nil {
			return Post{}, pkgerrors.Wrap(err, "checking slug")
		}
		if exists {
			return Post{}, ErrSlugExists
		}
		p.Slug = *up.Slug
	}
	if up.Excerpt != nil {
		p.Excerpt = *up.Excerpt
	}
	if up.Content != nil {
		p.Content = *up.Content
	}
	if up.CoverImageURL != nil {
		p.CoverImageURL = *up.CoverImageURL
	}
	if up.Tags != nil {
		p.Tags = up.Tags
	}
	now := time.Now().UTC()
	if up.Status != nil {
		p.Status = *up.Status
		if p.IsPublished() && p.PublishedAt == nil {
			p.PublishedAt = &now
		}
	}
	p.UpdatedAt = now
	return svc.repo.UpdatePost(ctx, p)
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	p, err := svc.repo.GetPost(ctx, id, "")
	if err != nil {
		return err
	}
	if !actor.CanManage(p.AuthorID) {
		return ErrForbidden
	}
	return svc.repo.DeletePost(ctx, id)
}
