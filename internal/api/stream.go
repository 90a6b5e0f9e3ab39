package api

import (
	"fmt"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/sanamente/catalogd/internal/catalog"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type streamEvent struct {
	Products interface{} `json:"products"`
	Error    string      `json:"error,omitempty"`
}

// streamProducts serves the live catalog over server-sent events. One
// subscription per connected client; the deferred Close guarantees the
// change-stream listener is torn down when the client goes away.
func streamProducts(c echo.Context) error {
	sub, err := catalog.Open(deps.Store)
	if err != nil {
		return failTaxonomy(c, err)
	}
	defer sub.Close()

	q := strings.TrimSpace(c.QueryParam("q"))
	tipo := strings.TrimSpace(c.QueryParam("tipo"))
	if tipo == "" {
		tipo = catalog.CategoryAll
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case view := <-sub.C:
			event := streamEvent{Products: catalog.Project(view.Products, q, tipo)}
			if view.Err != nil {
				// degraded stream: the frozen list still goes out
				event.Error = "SYNC_FAILURE"
			}
			data, err := json.Marshal(event)
			if err != nil {
				zap.L().Error("failed to encode stream event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
