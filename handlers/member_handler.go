package handlers

import (
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/middleware"
	"github.com/gin-gonic/gin"
)

// MemberHandler handles a user joining or leaving someone else's trip.
type MemberHandler struct {
	ledger MembershipLedgerInterface
}

func NewMemberHandler(ledger MembershipLedgerInterface) *MemberHandler {
	return &MemberHandler{ledger: ledger}
}

// JoinTripHandler godoc
// @Summary Join a trip
// @Tags members
// @Router /v1/trips/{id}/join [post]
// @Security BearerAuth
func (h *MemberHandler) JoinTripHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tripID := c.Param("id")

	result, err := h.ledger.Join(c.Request.Context(), userID, tripID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.GetLogger().Infow("User joined trip", "tripID", tripID, "userID", userID)
	middleware.NewResponseBuilder(c).Created(c, "Joined trip", result)
}

// LeaveTripHandler godoc
// @Summary Leave a trip
// @Tags members
// @Router /v1/trips/{id}/leave [post]
// @Security BearerAuth
func (h *MemberHandler) LeaveTripHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.ledger.Leave(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "Left trip", result)
}
