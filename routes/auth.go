package routes

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventapi/models"
	"eventapi/utils"
)

type storeUserRequest struct {
	ClerkID         string `json:"clerk_id"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// POST /auth/store-user
func (d *deps) storeUser(c *gin.Context) {
	var req storeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request data.")
		return
	}
	req.ClerkID = strings.TrimSpace(req.ClerkID)
	req.Email = strings.TrimSpace(req.Email)
	if req.ClerkID == "" || req.Email == "" {
		badRequest(c, "Missing required fields")
		return
	}

	now := d.now().UTC()
	u := models.User{
		ClerkID:         req.ClerkID,
		Email:           req.Email,
		Username:        req.Username,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		ProfileImageURL: req.ProfileImageURL,
		CreatedAt:       now,
		LastLogin:       now,
	}
	err := d.Users.Create(c.Request.Context(), &u)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"message":  "User added to database successfully",
			"user_id":  u.ID.Hex(),
			"clerk_id": u.ClerkID,
		})
	case errors.Is(err, models.ErrDuplicate):
		existing, err := d.Users.GetByClerkID(c.Request.Context(), req.ClerkID)
		if err != nil {
			log.Printf("store-user: read existing %s: %v", req.ClerkID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if err := d.Users.TouchLastLogin(c.Request.Context(), req.ClerkID, now); err != nil {
			log.Printf("store-user: touch last_login %s: %v", req.ClerkID, err)
		}
		c.JSON(http.StatusConflict, gin.H{
			"message":  "User already exists",
			"user_id":  existing.ID.Hex(),
			"clerk_id": existing.ClerkID,
		})
	default:
		log.Printf("store-user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// GET /auth/verify-session
func (d *deps) verifySession(c *gin.Context) {
	sid := c.GetHeader("X-Session-Id")
	if sid == "" {
		sid = c.Query("session_id")
	}
	if strings.TrimSpace(sid) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "No session provided"})
		return
	}
	if d.Sessions == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"valid": false, "error": "Session verification is not configured"})
		return
	}

	uid, err := d.Sessions.VerifySession(c.Request.Context(), sid)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true, "user_id": uid})
	case errors.Is(err, utils.ErrSessionInactive), errors.Is(err, utils.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Invalid session"})
	default:
		log.Printf("verify-session: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Could not verify session"})
	}
}
