package handlers

import (
	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/middleware"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
)

// TripHandler serves the trip lifecycle endpoints. Membership mutations that
// live under /trips/:id are delegated to the ledger.
type TripHandler struct {
	tripService TripServiceInterface
	ledger      MembershipLedgerInterface
}

func NewTripHandler(tripService TripServiceInterface, ledger MembershipLedgerInterface) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		ledger:      ledger,
	}
}

// getUserIDFromContext extracts the authenticated user ID from the Gin context.
// Returns empty string if not found (caller should handle unauthorized response).
func getUserIDFromContext(c *gin.Context) string {
	return middleware.GetUserID(c)
}

// requireUserID sets an authentication error when no user is on the context.
func requireUserID(c *gin.Context) (string, bool) {
	userID := getUserIDFromContext(c)
	if userID == "" {
		_ = c.Error(apperrors.AuthenticationFailed("No authenticated user"))
		return "", false
	}
	return userID, true
}

// bindJSONOrError binds JSON request body and sets validation error if binding fails.
// Returns true if binding succeeded, false if error was set (caller should return).
func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}

// CreateTripHandler godoc
// @Summary Create a trip
// @Tags trips
// @Router /v1/trips [post]
// @Security BearerAuth
func (h *TripHandler) CreateTripHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.TripCreate
	if !bindJSONOrError(c, &req) {
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.GetLogger().Infow("Trip created via API", "tripID", trip.ID, "userID", userID)
	middleware.NewResponseBuilder(c).Created(c, "Trip created", trip)
}

// GetTripHandler godoc
// @Summary Get trip details
// @Tags trips
// @Router /v1/trips/{id} [get]
// @Security BearerAuth
func (h *TripHandler) GetTripHandler(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "", trip)
}

// ListUserTripsHandler returns the trips the caller owns or has joined.
func (h *TripHandler) ListUserTripsHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	trips, err := h.tripService.ListUserTrips(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if trips == nil {
		trips = []types.TripView{}
	}
	middleware.NewResponseBuilder(c).Success(c, "", trips)
}

func (h *TripHandler) ListMembersHandler(c *gin.Context) {
	members, err := h.ledger.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if members == nil {
		members = []types.Membership{}
	}
	middleware.NewResponseBuilder(c).Success(c, "", members)
}

// CompleteTripHandler godoc
// @Summary Mark a trip completed
// @Description Only the owner may complete a trip, and only after it has started. Rewards are distributed to every participant.
// @Tags trips
// @Router /v1/trips/{id}/complete [post]
// @Security BearerAuth
func (h *TripHandler) CompleteTripHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	trip, err := h.tripService.CompleteTrip(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "Trip completed", trip)
}

// AbandonTripHandler godoc
// @Summary Abandon a trip
// @Description Cancels the trip, removes every participant and applies the abandonment penalty.
// @Tags trips
// @Router /v1/trips/{id} [delete]
// @Security BearerAuth
func (h *TripHandler) AbandonTripHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.ledger.Abandon(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "Trip abandoned", result)
}
