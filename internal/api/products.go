package api

import (
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/sanamente/catalogd/internal/catalog"
	"github.com/sanamente/catalogd/internal/webserver"
)

// registerProductRoutes registers the catalog read and mutation endpoints.
// Deletion lives in workflows.go: it always goes through the confirm flow.
func registerProductRoutes() {
	webserver.ApiGET("/crm/products", listProducts)
	webserver.ApiGET("/crm/products/export", exportProducts)
	webserver.ApiGET("/crm/products/stream", streamProducts)
	webserver.ApiGET("/crm/products/:id", getProduct)
	webserver.ApiPOST("/crm/products", createProduct)
	webserver.ApiPUT("/crm/products/:id", updateProduct)
}

// listProducts serves a one-shot snapshot through the projection. Filters:
// q (name substring, case-insensitive) and tipo (category, "all" default).
func listProducts(c echo.Context) error {
	view, err := currentView(c)
	if err != nil {
		return failTaxonomy(c, err)
	}

	q := strings.TrimSpace(c.QueryParam("q"))
	tipo := strings.TrimSpace(c.QueryParam("tipo"))
	if tipo == "" {
		tipo = catalog.CategoryAll
	}
	projected := catalog.Project(view.Products, q, tipo)

	page, pageSize := parsePagination(c)
	total := int64(len(projected))
	start := (page - 1) * pageSize
	if start > len(projected) {
		start = len(projected)
	}
	end := start + pageSize
	if end > len(projected) {
		end = len(projected)
	}
	return paged(c, projected[start:end], total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	view, err := currentView(c)
	if err != nil {
		return failTaxonomy(c, err)
	}
	for _, p := range view.Products {
		if p.ID == id {
			return ok(c, p)
		}
	}
	return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
}

func createProduct(c echo.Context) error {
	var payload catalog.Input
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	id, err := deps.Catalog.Create(c.Request().Context(), payload)
	if err != nil {
		return failTaxonomy(c, err)
	}
	// the created row appears in the next snapshot; only the id is returned
	return ok(c, echo.Map{"id": id})
}

func updateProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload catalog.Input
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := deps.Catalog.Update(c.Request().Context(), id, payload); err != nil {
		return failTaxonomy(c, err)
	}
	return ok(c, echo.Map{"id": id})
}

// exportProducts streams the current projected catalog as CSV.
func exportProducts(c echo.Context) error {
	view, err := currentView(c)
	if err != nil {
		return failTaxonomy(c, err)
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	tipo := strings.TrimSpace(c.QueryParam("tipo"))
	if tipo == "" {
		tipo = catalog.CategoryAll
	}
	projected := catalog.Project(view.Products, q, tipo)

	csv, err := gocsv.MarshalString(&projected)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export products", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="productos.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(csv))
}
