package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/datasync"
	"github.com/chachabrian/mooveit-admin/pkg/utils"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ExportCSV streams the cached table of :kind as a CSV attachment
func ExportCSV(syncer *datasync.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := kindParam(c)
		if !ok {
			return
		}

		header, rows := utils.Table(syncer.Snapshot(kind))
		filename := fmt.Sprintf("mooveit-%s-%s.csv", kind, time.Now().Format("20060102"))

		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Status(http.StatusOK)
		if err := utils.WriteCSV(c.Writer, header, rows); err != nil {
			log.WithError(err).WithField("kind", kind).Error("CSV export failed")
		}
	}
}
