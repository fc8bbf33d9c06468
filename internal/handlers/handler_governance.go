package handlers

import (
	"log/slog"
	"net/http"

	"github.com/civpoints/community_points_app/internal/core/domain"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/dto"
	"github.com/civpoints/community_points_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// governanceHandler handles HTTP requests for proposals, votes, and body
// rosters.
type governanceHandler struct {
	governanceService portssvc.GovernanceSvc
	rosterService     portssvc.RosterSvc
}

// newGovernanceHandler creates a new governanceHandler.
func newGovernanceHandler(gs portssvc.GovernanceSvc, rs portssvc.RosterSvc) *governanceHandler {
	return &governanceHandler{
		governanceService: gs,
		rosterService:     rs,
	}
}

// registerGovernanceRoutes registers proposal, vote, and roster routes.
func registerGovernanceRoutes(rg *gin.RouterGroup, gs portssvc.GovernanceSvc, rs portssvc.RosterSvc) {
	h := newGovernanceHandler(gs, rs)

	community := rg.Group("/communities/:communityID")
	{
		community.POST("/proposals", h.createProposal)
		community.GET("/proposals/:proposalID", h.getProposal)
		community.POST("/proposals/:proposalID/votes", h.castVote)

		community.PUT("/bodies/:body/members", h.addMember)
		community.DELETE("/bodies/:body/members/:userID", h.removeMember)
		community.GET("/bodies/:body/members", h.listMembers)
	}
}

func (h *governanceHandler) createProposal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")

	var req dto.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateProposal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	proposerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received proposal",
		slog.String("community_id", communityID),
		slog.String("body", string(req.Body)),
		slog.String("kind", string(req.Kind)))

	proposal, err := h.governanceService.Propose(c.Request.Context(), communityID, req.Body, proposerID, req.Kind, req.Title, req.Payload)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create proposal")
		return
	}

	c.JSON(http.StatusCreated, dto.ToProposalResponse(proposal))
}

func (h *governanceHandler) getProposal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	proposalID := c.Param("proposalID")

	proposal, tally, err := h.governanceService.GetProposal(c.Request.Context(), proposalID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve proposal")
		return
	}

	c.JSON(http.StatusOK, dto.ToProposalWithTallyResponse(proposal, tally))
}

func (h *governanceHandler) castVote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	proposalID := c.Param("proposalID")

	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CastVote", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	voterID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	vote, proposal, err := h.governanceService.CastVote(c.Request.Context(), proposalID, voterID, req.Choice)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to cast vote")
		return
	}

	logger.Info("Vote recorded",
		slog.String("proposal_id", proposalID),
		slog.String("voter", voterID),
		slog.String("proposal_state", string(proposal.State)))
	c.JSON(http.StatusCreated, dto.VoteResponse{
		ProposalID:    vote.ProposalID,
		VoterID:       vote.VoterID,
		Choice:        vote.Choice,
		CastAt:        vote.CastAt,
		ProposalState: proposal.State,
	})
}

func (h *governanceHandler) addMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	body := domain.BodyKind(c.Param("body"))

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddMember", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.rosterService.AddMember(c.Request.Context(), communityID, body, req.UserID, actorID); err != nil {
		respondServiceError(c, logger, err, "Failed to add member")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *governanceHandler) removeMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	body := domain.BodyKind(c.Param("body"))
	userID := c.Param("userID")

	if err := h.rosterService.RemoveMember(c.Request.Context(), communityID, body, userID); err != nil {
		respondServiceError(c, logger, err, "Failed to remove member")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *governanceHandler) listMembers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	communityID := c.Param("communityID")
	body := domain.BodyKind(c.Param("body"))

	members, err := h.rosterService.ListMembers(c.Request.Context(), communityID, body)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list members")
		return
	}

	c.JSON(http.StatusOK, dto.ListMembersResponse{Body: body, Members: members})
}
