package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/services/upload"
)

const uploadField = "file"

type uploadApi struct {
	auth *authenticator
	svc  upload.Service
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := uploadApi{auth: auth, svc: deps.UploadSvc}

	// leave room for the multipart envelope; the service enforces the exact size
	limit := middleware.BodyLimit(fmt.Sprintf("%dK", deps.Conf.Upload.MaxSize/1024+64))
	g.POST("/uploads", api.store, jwt, limit)
}

func (api *uploadApi) store(ctx echo.Context) error {
	if _, err := api.auth.currentUser(ctx); err != nil {
		return err
	}

	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		return core.NewFieldError(uploadField, "this field is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	stored, err := api.svc.Store(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "storing upload")
	}
	return created(ctx, stored)
}
