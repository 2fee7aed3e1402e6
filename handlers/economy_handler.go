package handlers

import (
	"strconv"

	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/middleware"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
)

type EconomyHandler struct {
	rewards RewardsServiceInterface
}

func NewEconomyHandler(rewards RewardsServiceInterface) *EconomyHandler {
	return &EconomyHandler{rewards: rewards}
}

// GetMyEconomyHandler returns the caller's coins, level, title and achievements.
// A user that never earned anything gets the zero economy.
func (h *EconomyHandler) GetMyEconomyHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	economy, err := h.rewards.GetEconomy(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "", economy)
}

// LeaderboardHandler godoc
// @Summary Coin leaderboard
// @Param limit query int false "Number of entries (default 20, max 100)"
// @Tags rewards
// @Router /v1/leaderboard [get]
// @Security BearerAuth
func (h *EconomyHandler) LeaderboardHandler(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	entries, err := h.rewards.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if entries == nil {
		entries = []types.LeaderboardEntry{}
	}
	middleware.NewResponseBuilder(c).Success(c, "", entries)
}

// queryInt parses an optional integer query parameter. Clamping is left to
// the service.
func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid query parameter", name+" must be an integer"))
		return 0, false
	}
	return v, true
}
