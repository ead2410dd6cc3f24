package inspect

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ContextInfo a live context summary
type ContextInfo struct {
	ID     uint64 `json:"id"`
	Values int    `json:"values"`
}

// Source the runtime state the inspector reads. All methods are safe to
// call from any goroutine.
type Source interface {
	Version() string
	Contexts() []ContextInfo
	HeapStats(id uint64) (string, bool)
}

// Attach mount the read-only runtime endpoints on a router
func Attach(router gin.IRouter, source Source) {

	router.GET("/runtime/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": source.Version()})
	})

	router.GET("/runtime/contexts", func(c *gin.Context) {
		c.JSON(http.StatusOK, source.Contexts())
	})

	router.GET("/runtime/contexts/:id/heap", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "bad context id", "code": 400})
			return
		}

		stats, has := source.HeapStats(id)
		if !has {
			c.JSON(http.StatusNotFound, gin.H{"message": "context is gone", "code": 404})
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(stats))
	})
}
