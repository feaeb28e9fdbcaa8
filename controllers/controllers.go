// controllers/controllers.go - Service wiring and shared error mapping
package controllers

import (
	"errors"
	"net/http"

	"review-assignment-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	candidateStore      services.CandidateStore
	invitationStore     services.InvitationStore
	conflictService     *services.ConflictService
	matcherService      *services.MatcherService
	invitationService   *services.InvitationService
	bulkInviteService   *services.BulkInviteService
	notificationService *services.NotificationService
)

// InitServices wires the service layer onto the shared database handle.
// Called once from main after config.InitDB.
func InitServices(db *gorm.DB) {
	candidateStore = services.NewCandidateStore(db)
	invitationStore = services.NewInvitationStore(db)
	notificationService = services.NewNotificationService(services.NewNotificationStore(db))
	conflictService = services.NewConflictService(candidateStore)
	matcherService = services.NewMatcherService(candidateStore, conflictService)
	invitationService = services.NewInvitationService(invitationStore, candidateStore, notificationService)
	bulkInviteService = services.NewBulkInviteService(
		invitationService, conflictService, candidateStore, invitationStore,
		services.NewStatusService(db))
}

// Notifications exposes the dispatcher for the main loop.
func Notifications() *services.NotificationService {
	return notificationService
}

// Invitations exposes the lifecycle service for the expiry sweep command.
func Invitations() *services.InvitationService {
	return invitationService
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case services.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateInvitation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvitationResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvitationExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotInvitable), errors.Is(err, services.ErrFieldUnknown):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
