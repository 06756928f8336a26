package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/youruser/emsapp/internal/employees"
)

func (h *handlers) listEmployees(c *gin.Context) {
	all, err := h.Employees.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	opt := employees.FilterOptions{
		Search:      c.Query("search"),
		Departments: c.QueryArray("department"),
		Positions:   c.QueryArray("position"),
	}
	if v, err := strconv.ParseBool(c.Query("active")); err == nil {
		opt.Active = &v
	}
	out := employees.Filter(all, opt)
	views := make([]employeeView, len(out))
	for i, e := range out {
		views[i] = employeeView{Employee: e}
		if h.Controller != nil {
			views[i].Delivered = h.Controller.Delivered(e.ID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "employees": views})
}

// employeeView marks employees whose credential has already been delivered.
type employeeView struct {
	employees.Employee
	Delivered bool `json:"delivered"`
}

func (h *handlers) getEmployee(c *gin.Context) {
	e, err := h.findEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handlers) createEmployee(c *gin.Context) {
	var e employees.Employee
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validEmployee(c, e) {
		return
	}
	created, err := h.Employees.Create(c.Request.Context(), e)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handlers) updateEmployee(c *gin.Context) {
	var e employees.Employee
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e.ID = c.Param("id")
	if !validEmployee(c, e) {
		return
	}
	updated, err := h.Employees.Update(c.Request.Context(), e)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handlers) deleteEmployee(c *gin.Context) {
	if err := h.Employees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// importRoster replaces the employee list with an uploaded CSV or
// spreadsheet.
func (h *handlers) importRoster(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	list, err := employees.ReadRoster(f, fh.Filename)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err := h.Employees.Replace(c.Request.Context(), list); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": len(list)})
}

func (h *handlers) departments(c *gin.Context) {
	all, err := h.Employees.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": employees.Departments(all)})
}

// previewCredential renders the card for one employee as PNG.
func (h *handlers) previewCredential(c *gin.Context) {
	e, err := h.findEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	card, err := h.Renderer.RenderCard(c.Request.Context(), e)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "image/png")
	if err := card.EncodePNG(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// findEmployee resolves key as an id first and then as a rut.
func (h *handlers) findEmployee(ctx context.Context, key string) (employees.Employee, error) {
	e, err := h.Employees.Get(ctx, key)
	if err == nil || !errors.Is(err, employees.ErrNotFound) {
		return e, err
	}
	all, err := h.Employees.List(ctx)
	if err != nil {
		return employees.Employee{}, err
	}
	return employees.Lookup(all, key)
}

func validEmployee(c *gin.Context, e employees.Employee) bool {
	err := employees.Validate(e)
	if err == nil {
		return true
	}
	var verr *employees.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}
