// Package api exposes the catalog and session operations over HTTP. It is
// the stand-in for the mobile presentation layer: it feeds search/category
// inputs into the projection, drives the confirm workflow, and renders
// taxonomy errors as response codes.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/auth"
	"github.com/sanamente/catalogd/internal/catalog"
	"github.com/sanamente/catalogd/internal/domain"
	"github.com/sanamente/catalogd/internal/store"
)

type Deps struct {
	Store   store.Store
	Catalog *catalog.Service
	Auth    *auth.JWTProvider
}

var deps Deps

// Init stores the dependencies and registers all routes. Call after
// webserver.Init.
func Init(d Deps) {
	deps = d
	registerAuthRoutes()
	registerProductRoutes()
	registerWorkflowRoutes()
	registerSystemRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, echo.Map{
		"success": false,
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"data":     rows,
		"total":    total,
		"page":     page,
		"per_page": pageSize,
	})
}

// failTaxonomy renders a taxonomy error with its matching status code.
func failTaxonomy(c echo.Context, err error) error {
	code := domain.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case "VALIDATION_FAILED":
		status = http.StatusBadRequest
	case "NOT_FOUND":
		status = http.StatusNotFound
	case "AUTH_REQUIRED":
		status = http.StatusUnauthorized
	case "SYNC_FAILURE":
		status = http.StatusServiceUnavailable
	}
	return fail(c, status, code, err.Error(), nil)
}

func handleValidationError(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Request validation failed", err.Error())
}

func parsePagination(c echo.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := 20
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

// snapshotTimeout bounds how long a one-shot read waits for the first
// snapshot of a fresh subscription.
const snapshotTimeout = 5 * time.Second

// currentView opens a throwaway subscription, takes the first view and
// closes it. Each request pays its own subscription cost; nothing is
// shared across consumers.
func currentView(c echo.Context) (catalog.View, error) {
	sub, err := catalog.Open(deps.Store)
	if err != nil {
		return catalog.View{}, err
	}
	defer sub.Close()

	select {
	case view := <-sub.C:
		return view, nil
	case <-c.Request().Context().Done():
		return catalog.View{}, c.Request().Context().Err()
	case <-time.After(snapshotTimeout):
		return catalog.View{}, errors.New("timed out waiting for snapshot")
	}
}
