package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

// FeedbackHandler stores user feedback.
type FeedbackHandler struct {
	feedback *usecase.FeedbackService
	logger   *zap.Logger
}

func NewFeedbackHandler(feedback *usecase.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackHandler{feedback: feedback, logger: logger}
}

// Submit godoc
// @Summary Submit feedback with name, email and message
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body FeedbackRequest true "Feedback"
// @Success 200 {object} FeedbackResponse
// @Failure 400,500 {object} ErrorResponse
// @Router /api/feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing fields"))
		return
	}

	_, err := h.feedback.Submit(c.Request.Context(), usecase.FeedbackInput{Name: req.Name, Email: req.Email, Message: req.Message})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Missing fields"},
		}, http.StatusInternalServerError, "Failed to store feedback")
		return
	}

	c.JSON(http.StatusOK, FeedbackResponse{Success: true, Message: "Feedback submitted successfully"})
}

// SubmitAnonymous godoc
// @Summary Submit feedback where only the message is required
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body FeedbackRequest true "Feedback"
// @Success 200 {object} FeedbackResponse
// @Failure 400,500 {object} FeedbackResponse
// @Router /api/submit-feedback [post]
func (h *FeedbackHandler) SubmitAnonymous(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, FeedbackResponse{Success: false, Message: "Feedback message is required"})
		return
	}

	_, err := h.feedback.SubmitAnonymous(c.Request.Context(), usecase.FeedbackInput{Name: req.Name, Email: req.Email, Message: req.Message})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, FeedbackResponse{Success: true, Message: "Feedback submitted successfully"})
	case errors.Is(err, usecase.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, FeedbackResponse{Success: false, Message: "Feedback message is required"})
	default:
		h.logger.Error("store feedback failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, FeedbackResponse{Success: false, Message: "Internal Server Error"})
	}
}
