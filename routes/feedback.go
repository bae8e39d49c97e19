package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventapi/services"
)

type submitFeedbackRequest struct {
	UserID  string   `json:"user_id"`
	Rating  *float64 `json:"rating"`
	Comment string   `json:"comment"`
}

// POST /api/feedback/submit/:event_id
func (d *deps) submitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid feedback data. Rating must be between 1-5.")
		return
	}

	f, err := d.Feedbacks.Submit(c.Request.Context(), c.Param("event_id"), services.FeedbackInput{
		UserID:  req.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Feedback submitted successfully",
		"feedback_id": f.ID.Hex(),
	})
}

// GET /api/feedback/event/:event_id
func (d *deps) getEventFeedback(c *gin.Context) {
	sum, err := d.Feedbacks.ForEvent(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GET /api/feedback/user/:user_id/event/:event_id
func (d *deps) getUserFeedback(c *gin.Context) {
	f, err := d.Feedbacks.ForUser(c.Request.Context(), c.Param("user_id"), c.Param("event_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// GET /api/feedback/pending/:user_id
func (d *deps) getPendingFeedback(c *gin.Context) {
	list, err := d.Feedbacks.Pending(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
