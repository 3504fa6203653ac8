package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/darasa-lms/darasa/core"
)

// Response is the envelope of every API response.
type Response struct {
	Success          bool                `json:"success"`
	Message          string              `json:"message,omitempty"`
	Data             interface{}         `json:"data,omitempty"`
	ValidationErrors map[string][]string `json:"validationErrors,omitempty"`
}

// Page is the data of paginated listings.
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func newPage(items interface{}, total int64, page core.Pagination) Page {
	page.Clean()
	return Page{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}
}

func ok(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func message(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: msg})
}
