package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventapi/middlewares"
	"eventapi/models"
)

type addCommentRequest struct {
	Text     string `json:"text"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// GET /api/events/:event_id/comments
func (d *deps) getComments(c *gin.Context) {
	event, err := d.Events.GetByID(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}
	c.JSON(http.StatusOK, event.Comments)
}

// POST /api/events/:event_id/comments
func (d *deps) addComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request data.")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		badRequest(c, "Comment text is required")
		return
	}

	// a verified caller wins over whatever the body claims
	author := c.GetString(middlewares.UserIDKey)
	if author == "" {
		author = strings.TrimSpace(req.UserID)
	}
	name := strings.TrimSpace(req.UserName)
	if author == "" {
		author = "anonymous"
	}
	if name == "" {
		name = "Anonymous"
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		UserID:    author,
		UserName:  name,
		Text:      req.Text,
		CreatedAt: d.now().UTC(),
	}
	id := c.Param("event_id")
	if err := d.Events.AddComment(c.Request.Context(), id, comment); err != nil {
		respondRepoError(c, err)
		return
	}
	d.purgeEvent(c.Request.Context(), id)
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added successfully", "comment": comment})
}

// DELETE /api/events/:event_id/comments/:comment_id
func (d *deps) deleteComment(c *gin.Context) {
	id := c.Param("event_id")
	commentID := c.Param("comment_id")

	event, err := d.Events.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	var found *models.Comment
	for i := range event.Comments {
		if event.Comments[i].ID == commentID {
			found = &event.Comments[i]
			break
		}
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if found.UserID != c.GetString(middlewares.UserIDKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this comment."})
		return
	}

	if err := d.Events.DeleteComment(c.Request.Context(), id, commentID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		respondRepoError(c, err)
		return
	}
	d.purgeEvent(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
