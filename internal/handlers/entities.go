package handlers

import (
	"net/http"

	"github.com/chachabrian/mooveit-admin/internal/datasync"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/gin-gonic/gin"
)

// ListEntities returns the cached table of kind. Rides and drivers can be
// narrowed with ?status=.
func ListEntities(syncer *datasync.Syncer, kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		col := syncer.Snapshot(kind)
		if status := c.Query("status"); status != "" {
			col = filterByStatus(col, status)
		}
		c.JSON(http.StatusOK, gin.H{
			"kind":     kind,
			"revision": syncer.Revision(kind),
			"count":    col.Len(),
			"items":    items(col),
		})
	}
}

func items(col models.Collection) any {
	switch col.Kind {
	case models.KindClients:
		return nonNil(col.Clients)
	case models.KindDrivers:
		return nonNil(col.Drivers)
	case models.KindRides:
		return nonNil(col.Rides)
	case models.KindVerifications:
		return nonNil(col.Verifications)
	}
	return []any{}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func filterByStatus(col models.Collection, status string) models.Collection {
	switch col.Kind {
	case models.KindRides:
		out := col.Rides[:0]
		for _, r := range col.Rides {
			if string(r.Status) == status {
				out = append(out, r)
			}
		}
		col.Rides = out
	case models.KindDrivers:
		out := col.Drivers[:0]
		for _, d := range col.Drivers {
			if string(d.Status) == status {
				out = append(out, d)
			}
		}
		col.Drivers = out
	}
	return col
}

// GetEntity returns one row of kind, from the cache when present and from
// the backend otherwise.
func GetEntity(syncer *datasync.Syncer, backend store.Collaborator, kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if item, ok := findByID(syncer.Snapshot(kind), id); ok {
			c.JSON(http.StatusOK, gin.H{"item": item})
			return
		}

		q := syncer.Query(kind)
		col, err := backend.FetchCollection(c.Request.Context(), kind, store.Query{
			Filters: []store.Filter{store.Eq("id", id)},
			Limit:   1,
			OrderBy: q.OrderBy,
		})
		if err != nil {
			respondError(c, models.NewFetchError(kind, "fetch", err))
			return
		}
		item, ok := findByID(col, id)
		if !ok {
			respondError(c, &models.NotFoundError{Kind: kind, ID: id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": item})
	}
}

func findByID(col models.Collection, id string) (any, bool) {
	switch col.Kind {
	case models.KindClients:
		for _, v := range col.Clients {
			if v.ID == id {
				return v, true
			}
		}
	case models.KindDrivers:
		for _, v := range col.Drivers {
			if v.ID == id {
				return v, true
			}
		}
	case models.KindRides:
		for _, v := range col.Rides {
			if v.ID == id {
				return v, true
			}
		}
	case models.KindVerifications:
		for _, v := range col.Verifications {
			if v.ID == id {
				return v, true
			}
		}
	}
	return nil, false
}

// RefreshEntities forces a re-fetch of one table.
func RefreshEntities(syncer *datasync.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := kindParam(c)
		if !ok {
			return
		}
		col, err := syncer.Refresh(c.Request.Context(), kind)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := syncer.RefreshStats(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"kind":     kind,
			"revision": syncer.Revision(kind),
			"count":    col.Len(),
		})
	}
}
