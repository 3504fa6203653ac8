package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/blog"
)

type postRepository struct {
	db *gorm.DB
}

var _ blog.Repository = (*postRepository)(nil) // interface compliance check

func NewPostRepository(db *gorm.DB) *postRepository {
	return &postRepository{db: db}
}

func (repo postRepository) boil(p blog.Post) *postRow {
	return &postRow{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		Excerpt:       p.Excerpt,
		Content:       p.Content,
		CoverImageURL: p.CoverImageURL,
		Tags:          p.Tags,
		Status:        p.Status,
		PublishedAt:   utcPtr(p.PublishedAt),
		AuthorID:      p.AuthorID,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func (repo postRepository) unboil(r *postRow) blog.Post {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return blog.Post{
		ID:            r.ID,
		Title:         r.Title,
		Slug:          r.Slug,
		Excerpt:       r.Excerpt,
		Content:       r.Content,
		CoverImageURL: r.CoverImageURL,
		Tags:          tags,
		Status:        r.Status,
		PublishedAt:   r.PublishedAt,
		AuthorID:      r.AuthorID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (repo postRepository) CreatePost(ctx context.Context, p blog.Post) (blog.Post, error) {
	p.ID = newID()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	r := repo.boil(p)
	if err := conn(ctx, repo.db).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return blog.Post{}, blog.ErrSlugExists
		}
		return blog.Post{}, errors.Wrap(err, "inserting post")
	}
	return repo.unboil(r), nil
}

// GetPost finds a post by id, or by slug when id is empty.
func (repo postRepository) GetPost(ctx context.Context, id, slug string) (blog.Post, error) {
	q := conn(ctx, repo.db)
	switch {
	case id != "":
		if !validID(id) {
			return blog.Post{}, blog.ErrNotFound
		}
		q = q.Where("id = ?", id)
	case slug != "":
		q = q.Where("slug = ?", slug)
	default:
		return blog.Post{}, blog.ErrNotFound
	}

	var r postRow
	if err := q.First(&r).Error; err != nil {
		if isNotFound(err) {
			return blog.Post{}, blog.ErrNotFound
		}
		return blog.Post{}, errors.Wrap(err, "finding post")
	}
	return repo.unboil(&r), nil
}

func (repo postRepository) QueryPosts(ctx context.Context, filter blog.QueryFilter, page core.Pagination) ([]blog.Post, int64, error) {
	q := conn(ctx, repo.db).Model(&postRow{})
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(excerpt) LIKE LOWER(?)", val, val)
	}
	if filter.Tag != "" {
		// tags are stored as a JSON array of strings
		q = q.Where("CAST(tags AS TEXT) LIKE ?", `%"`+filter.Tag+`"%`)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting posts")
	}

	var rows []postRow
	err := q.Order("published_at DESC, created_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying posts")
	}
	posts := make([]blog.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, repo.unboil(&rows[i]))
	}
	return posts, total, nil
}

func (repo postRepository) UpdatePost(ctx context.Context, p blog.Post) (blog.Post, error) {
	r := repo.boil(p)
	if err := conn(ctx, repo.db).Save(r).Error; err != nil {
		if isUniqueViolation(err) {
			return blog.Post{}, blog.ErrSlugExists
		}
		return blog.Post{}, errors.Wrap(err, "updating post")
	}
	return repo.unboil(r), nil
}

func (repo postRepository) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return blog.ErrNotFound
	}
	res := conn(ctx, repo.db).Where("id = ?", id).Delete(&postRow{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting post")
	}
	if res.RowsAffected == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func (repo postRepository) SlugExists(ctx context.Context, slug, excludedID string) (bool, error) {
	q := conn(ctx, repo.db).Model(&postRow{}).Where("slug = ?", slug)
	if excludedID != "" {
		q = q.Where("id <> ?", excludedID)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, errors.Wrap(err, "checking post slug")
	}
	return cnt > 0, nil
}
