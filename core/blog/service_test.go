package blog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/blog"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/tests"
)

func TestService_Posts(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	svc := env.BlogSvc
	validate, _ := testutil.Validator()

	author := testutil.CreateUser(t, env.UserRepo, "Aut", "aut", "aut@test.cd", "", user.RoleInstructor, true)
	other := testutil.CreateUser(t, env.UserRepo, "Oth", "oth", "oth@test.cd", "", user.RoleInstructor, true)
	admin := testutil.CreateUser(t, env.UserRepo, "Adm", "adm", "adm@test.cd", "", user.RoleAdmin, true)
	reader := testutil.CreateUser(t, env.UserRepo, "Rea", "rea", "rea@test.cd", "", user.RoleStudent, true)

	newPost := func(title, status string, tags ...string) blog.NewPost {
		np := blog.NewPost{Title: title, Content: "Body of " + title, Status: status, Tags: tags}
		require.NoError(t, np.Validate(validate))
		return np
	}

	published, err := svc.Create(ctx, author, newPost("Why Go?", blog.StatusPublished, " Go ", "go", "Backend"))
	require.NoError(t, err)
	assert.Equal(t, "why-go", published.Slug)
	assert.Equal(t, []string{"go", "backend"}, published.Tags)
	assert.NotNil(t, published.PublishedAt)

	draft, err := svc.Create(ctx, author, newPost("Why Go?", ""))
	require.NoError(t, err)
	assert.Equal(t, "why-go-2", draft.Slug)
	assert.Equal(t, blog.StatusDraft, draft.Status)
	assert.Nil(t, draft.PublishedAt)

	t.Run("students cannot write", func(t *testing.T) {
		_, err := svc.Create(ctx, reader, newPost("Nope", ""))
		assert.ErrorIs(t, err, blog.ErrForbidden)
	})

	t.Run("visibility", func(t *testing.T) {
		tests := []struct {
			name    string
			actor   *user.User
			slug    string
			wantErr error
		}{
			{name: "anonymous published", slug: published.Slug},
			{name: "anonymous draft", slug: draft.Slug, wantErr: blog.ErrNotFound},
			{name: "other author draft", actor: &other, slug: draft.Slug, wantErr: blog.ErrNotFound},
			{name: "author draft", actor: &author, slug: draft.Slug},
			{name: "admin draft", actor: &admin, slug: "WHY-GO-2"},
			{name: "unknown", slug: "nope", wantErr: blog.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.GetBySlug(ctx, tt.actor, tt.slug)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name      string
			actor     *user.User
			filter    blog.QueryFilter
			wantTotal int64
		}{
			{name: "anonymous", wantTotal: 1},
			{name: "anonymous asking drafts", filter: blog.QueryFilter{Status: blog.StatusDraft}, wantTotal: 1},
			{name: "own posts", actor: &author, filter: blog.QueryFilter{AuthorID: author.ID}, wantTotal: 2},
			{name: "admin", actor: &admin, wantTotal: 2},
			{name: "tag", filter: blog.QueryFilter{Tag: "BACKEND"}, wantTotal: 1},
			{name: "unknown tag", filter: blog.QueryFilter{Tag: "rust"}, wantTotal: 0},
			{name: "search", actor: &admin, filter: blog.QueryFilter{Search: "why"}, wantTotal: 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, total, err := svc.Query(ctx, tt.actor, tt.filter, core.Pagination{})
				require.NoError(t, err)
				assert.Equal(t, tt.wantTotal, total)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		_, err := svc.Update(ctx, other, draft.ID, blog.UpdatePost{Status: core.StrPtr(blog.StatusPublished)})
		assert.ErrorIs(t, err, blog.ErrForbidden)

		_, err = svc.Update(ctx, author, draft.ID, blog.UpdatePost{Slug: core.StrPtr(published.Slug)})
		assert.ErrorIs(t, err, blog.ErrSlugExists)

		got, err := svc.Update(ctx, author, draft.ID, blog.UpdatePost{
			Slug: core.StrPtr("go-in-production"), Status: core.StrPtr(blog.StatusPublished),
		})
		require.NoError(t, err)
		assert.Equal(t, "go-in-production", got.Slug)
		assert.NotNil(t, got.PublishedAt)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, other, published.ID), blog.ErrForbidden)
		assert.NoError(t, svc.Delete(ctx, admin, published.ID))
		_, err := svc.GetBySlug(ctx, nil, published.Slug)
		assert.ErrorIs(t, err, blog.ErrNotFound)
	})
}
