package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/chachabrian/mooveit-admin/internal/middleware"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/chachabrian/mooveit-admin/internal/verification"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DecisionMailer emails drivers the outcome of their verification.
type DecisionMailer interface {
	Enabled() bool
	SendVerificationDecision(v models.DriverVerification) error
}

type ApproveInput struct {
	AdminNotes string `json:"admin_notes"`
}

type RejectInput struct {
	Reason     string `json:"reason"`
	AdminNotes string `json:"admin_notes"`
}

// ListVerifications returns the bundles, optionally narrowed with ?status=
func ListVerifications(wf *verification.Workflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := wf.List(c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":         len(list),
			"items":         nonNil(list),
			"verifications": wf.Counts(),
		})
	}
}

// GetVerificationCounts returns the mini counters above the documents grid
func GetVerificationCounts(wf *verification.Workflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, wf.Counts())
	}
}

// GetVerification returns one bundle with openable document URLs
func GetVerification(wf *verification.Workflow, docs *services.DocumentStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := wf.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": docs.ResolveVerification(v)})
	}
}

func bindOptional(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// ApproveVerification approves a pending bundle
func ApproveVerification(wf *verification.Workflow, mailer DecisionMailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ApproveInput
		if !bindOptional(c, &input) {
			return
		}

		v, err := wf.Approve(c.Request.Context(), c.Param("id"), input.AdminNotes)
		if err != nil {
			respondError(c, err)
			return
		}
		logDecision(c, v)
		notifyDriver(mailer, v)
		c.JSON(http.StatusOK, gin.H{"message": "Vérification approuvée avec succès", "item": v})
	}
}

// RejectVerification rejects a pending bundle; a reason is mandatory
func RejectVerification(wf *verification.Workflow, mailer DecisionMailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RejectInput
		if !bindOptional(c, &input) {
			return
		}

		v, err := wf.Reject(c.Request.Context(), c.Param("id"), input.Reason, input.AdminNotes)
		if err != nil {
			respondError(c, err)
			return
		}
		logDecision(c, v)
		notifyDriver(mailer, v)
		c.JSON(http.StatusOK, gin.H{"message": "Vérification refusée", "item": v})
	}
}

func logDecision(c *gin.Context, v models.DriverVerification) {
	admin, _ := middleware.CurrentAdmin(c)
	log.WithFields(log.Fields{
		"verification_id": v.ID,
		"driver_id":       v.DriverID,
		"status":          v.Status,
		"admin_id":        admin.ID,
	}).Info("Verification decided")
}

// notifyDriver sends the decision email in the background.
func notifyDriver(mailer DecisionMailer, v models.DriverVerification) {
	if mailer == nil || !mailer.Enabled() {
		return
	}
	go func() {
		if err := mailer.SendVerificationDecision(v); err != nil {
			log.WithError(err).WithField("verification_id", v.ID).Warn("Failed to email driver")
		}
	}()
}
