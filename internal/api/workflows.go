package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"github.com/sanamente/catalogd/internal/webserver"
	"github.com/sanamente/catalogd/internal/workflow"
)

// flowEntry is one live confirm/execute/report flow owned by a session.
type flowEntry struct {
	ID      string
	Kind    string
	Target  string
	Owner   int64
	Created time.Time
	wf      *workflow.Workflow
}

// flowRegistry enforces one active workflow per owner, mirroring the
// one-modal-per-screen rule.
type flowRegistry struct {
	mu      sync.Mutex
	byID    map[string]*flowEntry
	byOwner map[int64]*flowEntry
}

var flows = &flowRegistry{
	byID:    make(map[string]*flowEntry),
	byOwner: make(map[int64]*flowEntry),
}

func (r *flowRegistry) begin(owner int64, kind, target, successMsg string, action workflow.Action) (*flowEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byOwner[owner]; ok {
		if existing.wf.State() != workflow.StateIdle {
			return nil, workflow.ErrBusy
		}
		// previous flow finished; drop it
		delete(r.byID, existing.ID)
		delete(r.byOwner, owner)
	}

	entry := &flowEntry{
		ID:      random.String(16),
		Kind:    kind,
		Target:  target,
		Owner:   owner,
		Created: time.Now(),
		wf:      workflow.New(0),
	}
	// the continuation disposes of the flow, the HTTP analogue of
	// "navigate back" after a successful report
	onDone := func() { r.remove(entry.ID) }
	if err := entry.wf.Begin(action, successMsg, onDone); err != nil {
		return nil, err
	}
	r.byID[entry.ID] = entry
	r.byOwner[owner] = entry
	return entry, nil
}

func (r *flowRegistry) get(id string) (*flowEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[id]
	return entry, ok
}

// ownedFlow resolves a flow id for the requesting session. A flow owned by
// someone else reads as not found, so ids leak nothing across sessions.
func ownedFlow(c echo.Context, id string) (*flowEntry, bool) {
	entry, found := flows.get(id)
	if !found {
		return nil, false
	}
	sess := webserver.GetSession(c)
	if sess == nil || sess.UserID != entry.Owner {
		return nil, false
	}
	return entry, true
}

func (r *flowRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byID[id]; ok {
		delete(r.byID, id)
		if owned, ok := r.byOwner[entry.Owner]; ok && owned.ID == id {
			delete(r.byOwner, entry.Owner)
		}
	}
}

func flowJSON(entry *flowEntry) echo.Map {
	out := echo.Map{
		"id":     entry.ID,
		"kind":   entry.Kind,
		"target": entry.Target,
		"state":  entry.wf.State().String(),
	}
	if result, reporting := entry.wf.Report(); reporting {
		out["result"] = result
	}
	return out
}

// registerWorkflowRoutes registers the confirm-flow endpoints plus the
// delete entry point, which is only reachable through a workflow.
func registerWorkflowRoutes() {
	webserver.ApiDELETE("/crm/products/:id", deleteProduct)
	webserver.ApiGET("/crm/workflows/:id", getWorkflow)
	webserver.ApiPOST("/crm/workflows/:id/confirm", confirmWorkflow)
	webserver.ApiPOST("/crm/workflows/:id/cancel", cancelWorkflow)
}

// deleteProduct initiates the confirm flow for a destructive delete. The
// store delete runs only after an explicit confirm, at most once; a second
// delete needs a fresh flow.
func deleteProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	sess := webserver.GetSession(c)
	if sess == nil {
		return fail(c, http.StatusUnauthorized, "AUTH_REQUIRED", "No active session", nil)
	}

	entry, err := flows.begin(sess.UserID, "product.delete", id,
		fmt.Sprintf("Producto %s eliminado", id),
		func(ctx context.Context) error {
			return deps.Catalog.Delete(ctx, id)
		})
	if err == workflow.ErrBusy {
		return fail(c, http.StatusConflict, "WORKFLOW_BUSY", "Another action is awaiting confirmation", nil)
	} else if err != nil {
		return failTaxonomy(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"success": true, "data": flowJSON(entry)})
}

func getWorkflow(c echo.Context) error {
	entry, found := ownedFlow(c, c.Param("id"))
	if !found {
		return fail(c, http.StatusNotFound, "WORKFLOW_NOT_FOUND", "Workflow not found", nil)
	}
	return ok(c, flowJSON(entry))
}

func confirmWorkflow(c echo.Context) error {
	entry, found := ownedFlow(c, c.Param("id"))
	if !found {
		return fail(c, http.StatusNotFound, "WORKFLOW_NOT_FOUND", "Workflow not found", nil)
	}
	result, err := entry.wf.Confirm(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	}
	if !result.Success {
		// failed flows stay in reporting until dismissed; dismiss on
		// behalf of the client so it can simply re-initiate
		_ = entry.wf.Dismiss()
		flows.remove(entry.ID)
	}
	return ok(c, echo.Map{
		"id":     entry.ID,
		"state":  entry.wf.State().String(),
		"result": result,
	})
}

func cancelWorkflow(c echo.Context) error {
	entry, found := ownedFlow(c, c.Param("id"))
	if !found {
		return fail(c, http.StatusNotFound, "WORKFLOW_NOT_FOUND", "Workflow not found", nil)
	}
	if err := entry.wf.Cancel(); err != nil {
		return fail(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	}
	flows.remove(entry.ID)
	return ok(c, echo.Map{"id": entry.ID, "state": entry.wf.State().String()})
}
