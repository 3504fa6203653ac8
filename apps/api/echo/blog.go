package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/blog"
)

type blogApi struct {
	auth     *authenticator
	svc      blog.Service
	validate *validator.Validate
}

func registerBlogAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := blogApi{auth: auth, svc: deps.BlogSvc, validate: deps.Validate}

	pg := g.Group("/posts")
	pg.GET("", api.query, optJWT)
	pg.GET("/slug/:slug", api.retrieve, optJWT)
	pg.POST("", api.create, jwt)
	pg.PUT("/:id", api.update, jwt)
	pg.DELETE("/:id", api.destroy, jwt)
}

func (api *blogApi) query(ctx echo.Context) error {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return err
	}
	filter := blog.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Tag:      ctx.QueryParam("tag"),
		Status:   ctx.QueryParam("status"),
		AuthorID: ctx.QueryParam("author_id"),
	}
	page := bindPagination(ctx)
	posts, total, err := api.svc.Query(ctx.Request().Context(), actor, filter, page)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	return ok(ctx, newPage(posts, total, page))
}

func (api *blogApi) retrieve(ctx echo.Context) error {
	actor, err := api.auth.optionalUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.GetBySlug(ctx.Request().Context(), actor, ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding post by slug")
	}
	return ok(ctx, p)
}

func (api *blogApi) create(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data blog.NewPost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	p, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return created(ctx, p)
}

func (api *blogApi) update(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	var data blog.UpdatePost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	p, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating post")
	}
	return ok(ctx, p)
}

func (api *blogApi) destroy(ctx echo.Context) error {
	actor, err := api.auth.currentUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}
