package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := newHandlers(d)
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/barcode", h.barcode)

		api.GET("/employees", h.listEmployees)
		api.POST("/employees", h.createEmployee)
		api.POST("/employees/import", h.importRoster)
		api.GET("/employees/:id", h.getEmployee)
		api.PUT("/employees/:id", h.updateEmployee)
		api.DELETE("/employees/:id", h.deleteEmployee)
		api.GET("/employees/:id/credential.png", h.previewCredential)
		api.GET("/departments", h.departments)

		api.POST("/credentials", h.startCredentials)
		api.GET("/credentials/status", h.credentialStatus)
		api.POST("/credentials/ack", h.acknowledge)
		api.GET("/downloads/:id", h.download)

		api.POST("/credentials/jobs", h.enqueueJob)
		api.GET("/credentials/jobs/:id", h.jobStatus)
		api.GET("/credentials/jobs/:id/download", h.jobDownload)
	}
}
