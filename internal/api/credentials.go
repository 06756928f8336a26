package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/youruser/emsapp/internal/artifacts"
	"github.com/youruser/emsapp/internal/batch"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/queue"
)

type credentialsRequest struct {
	Name        string   `json:"name"`
	EmployeeIDs []string `json:"employee_ids"`
	Departments []string `json:"departments"`
	// Batch forces a multi-page document even for one employee.
	Batch bool `json:"batch"`
}

func (r credentialsRequest) selection() batch.Selection {
	return batch.Selection{Name: r.Name, Departments: r.Departments, EmployeeIDs: r.EmployeeIDs}
}

func (r credentialsRequest) single() bool {
	return !r.Batch && len(r.Departments) == 0 && len(r.EmployeeIDs) == 1
}

func bindCredentialsRequest(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	if req.selection().Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "select employee_ids or departments"})
		return req, false
	}
	return req, true
}

// startCredentials runs an interactive generation. The result is polled
// through /credentials/status and fetched from the download URL it reports.
func (h *handlers) startCredentials(c *gin.Context) {
	req, ok := bindCredentialsRequest(c)
	if !ok {
		return
	}
	all, err := h.Employees.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	selected, missing := req.selection().Resolve(all)
	if len(missing) > 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown employees", "missing": missing})
		return
	}
	if len(selected) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no employees match the selection"})
		return
	}

	r := credential.Batch(selected)
	if req.single() {
		r = credential.Single(selected[0])
	}
	if _, err := h.Controller.Start(h.BaseContext, r); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Controller.State())
}

func (h *handlers) credentialStatus(c *gin.Context) {
	st := h.Controller.State()
	body := gin.H{"state": st, "delivered": h.Controller.DeliveredIDs()}
	if st.Progress != nil {
		body["percent"] = st.Progress.Percent()
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) acknowledge(c *gin.Context) {
	if !h.Controller.Acknowledge() {
		respondError(c, credential.ErrBusy)
		return
	}
	c.JSON(http.StatusOK, h.Controller.State())
}

// download serves a delivered artifact once.
func (h *handlers) download(c *gin.Context) {
	obj, err := h.Downloads.Claim(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, artifacts.ErrExpired) {
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	sendObject(c, obj)
}

func (h *handlers) enqueueJob(c *gin.Context) {
	if h.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background jobs are not configured"})
		return
	}
	req, ok := bindCredentialsRequest(c)
	if !ok {
		return
	}
	st, err := h.Jobs.Enqueue(c.Request.Context(), req.selection())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, st)
}

func (h *handlers) jobStatus(c *gin.Context) {
	if h.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background jobs are not configured"})
		return
	}
	st, err := h.Jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// jobDownload redirects to a presigned URL when the store supports it and
// streams the document otherwise.
func (h *handlers) jobDownload(c *gin.Context) {
	if h.Jobs == nil || h.Artifacts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background jobs are not configured"})
		return
	}
	ctx := c.Request.Context()
	st, err := h.Jobs.Status(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if st.State != queue.JobSucceeded {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s", st.State), "job": st})
		return
	}
	key := st.Key
	if key == "" {
		key = queue.ArtifactKey(st.ID)
	}
	if p, ok := h.Artifacts.(presigner); ok {
		u, err := p.PresignGet(ctx, key, st.Filename, h.PresignTTL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusFound, u)
		return
	}
	obj, err := h.Artifacts.Get(ctx, key)
	if err != nil {
		respondError(c, err)
		return
	}
	sendObject(c, obj)
}

func sendObject(c *gin.Context, obj *artifacts.Object) {
	name := strings.ReplaceAll(obj.Filename, `"`, "")
	if name == "" {
		name = credential.BatchFilename
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = credential.ContentType
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, contentType, obj.Data)
}
