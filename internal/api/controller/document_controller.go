package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/go_persist/internal/app"
	"github.com/bassista/go_persist/internal/document"
	"github.com/bassista/go_persist/internal/logger"
	"github.com/bassista/go_persist/internal/persist"
	"github.com/containerd/errdefs"
	"github.com/gin-gonic/gin"
)

// DocumentController exposes the shared document over HTTP.
type DocumentController struct {
	app *app.App
}

func NewDocumentController(a *app.App) *DocumentController {
	return &DocumentController{app: a}
}

type statusResponse struct {
	Location string         `json:"location"`
	Format   string         `json:"format"`
	Dirty    bool           `json:"dirty"`
	Keys     int            `json:"keys"`
	Loop     app.LoopStatus `json:"loop"`
}

// snapshot deep-copies the document under the read lock.
func (dc *DocumentController) snapshot() (document.Document, error) {
	var (
		out document.Document
		err error
	)
	dc.app.Doc.View(func(d document.Document) {
		out, err = d.Clone()
	})
	return out, err
}

func (dc *DocumentController) respondDocument(c *gin.Context) {
	doc, err := dc.snapshot()
	if err != nil {
		logger.WithComponent("document-controller").Errorf("snapshot failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// bindDocument decodes a JSON object body; anything else is a 400.
func bindDocument(c *gin.Context) (document.Document, bool) {
	var body document.Document
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return nil, false
	}
	if body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return nil, false
	}
	return body, true
}

// statusFor maps persistence failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsInvalidArgument(err), persist.IsEncodeError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Status handles GET /status.
func (dc *DocumentController) Status(c *gin.Context) {
	var keys int
	dc.app.Doc.View(func(d document.Document) { keys = len(d) })

	c.JSON(http.StatusOK, statusResponse{
		Location: dc.app.Doc.Location().String(),
		Format:   dc.app.Doc.Format(),
		Dirty:    dc.app.Doc.IsDirty(),
		Keys:     keys,
		Loop:     dc.app.LoopStatus(),
	})
}

// GetDocument handles GET /document.
func (dc *DocumentController) GetDocument(c *gin.Context) {
	dc.respondDocument(c)
}

// ReplaceDocument handles PUT /document. A body the configured format cannot
// write is rejected with 422 and the document is left as it was.
func (dc *DocumentController) ReplaceDocument(c *gin.Context) {
	body, ok := bindDocument(c)
	if !ok {
		return
	}
	err := dc.app.Doc.Modify(func(document.Document) (document.Document, error) {
		return body, nil
	})
	if err != nil {
		dc.rejectChange(c, "replace", err)
		return
	}
	logger.WithComponent("document-controller").Debugf("document replaced (%d keys)", len(body))
	dc.respondDocument(c)
}

// MergeDocument handles PATCH /document. Keys set to null are removed.
func (dc *DocumentController) MergeDocument(c *gin.Context) {
	patch, ok := bindDocument(c)
	if !ok {
		return
	}
	err := dc.app.Doc.Modify(func(current document.Document) (document.Document, error) {
		next, err := current.Clone()
		if err != nil {
			return nil, err
		}
		next.Merge(patch)
		return next, nil
	})
	if err != nil {
		dc.rejectChange(c, "patch", err)
		return
	}
	logger.WithComponent("document-controller").Debugf("document patched (%d keys)", len(patch))
	dc.respondDocument(c)
}

func (dc *DocumentController) rejectChange(c *gin.Context, op string, err error) {
	logger.WithComponent("document-controller").Warnf("%s rejected: %v", op, err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// GetKey handles GET /document/:key.
func (dc *DocumentController) GetKey(c *gin.Context) {
	key := c.Param("key")

	var (
		value any
		err   error
	)
	dc.app.Doc.View(func(d document.Document) {
		value, err = d.Get(key)
	})
	if errors.Is(err, document.ErrKeyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// DeleteKey handles DELETE /document/:key.
func (dc *DocumentController) DeleteKey(c *gin.Context) {
	key := c.Param("key")

	found := false
	dc.app.Doc.View(func(d document.Document) {
		_, found = d[key]
	})
	if !found {
		logger.WithComponent("document-controller").Debugf("delete key %s: not found", key)
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}

	dc.app.Doc.Update(func(d *document.Document) {
		delete(*d, key)
	})
	logger.WithComponent("document-controller").Debugf("key %s deleted", key)
	dc.respondDocument(c)
}

// Persist handles POST /persist: an immediate write outside the loop cadence.
func (dc *DocumentController) Persist(c *gin.Context) {
	if err := dc.app.Doc.Persist(c.Request.Context(), 0); err != nil {
		logger.WithComponent("document-controller").Errorf("persist failed: %v", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"persisted": true, "location": dc.app.Doc.Location().String()})
}

// Load handles POST /load: replaces the in-memory document with the file
// content, discarding unpersisted changes.
func (dc *DocumentController) Load(c *gin.Context) {
	if err := dc.app.Doc.Load(c.Request.Context()); err != nil {
		logger.WithComponent("document-controller").Warnf("load failed: %v", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	dc.respondDocument(c)
}
