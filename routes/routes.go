package routes

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventapi/middlewares"
	"eventapi/models"
	"eventapi/payments"
	"eventapi/services"
	"eventapi/utils"
)

// SessionVerifier checks an identity-provider session id.
type SessionVerifier interface {
	VerifySession(ctx context.Context, sessionID string) (string, error)
}

// Deps is everything the HTTP surface needs. Redis, Sessions, Tokens and
// Invalidator may be nil; the features they back are then disabled.
type Deps struct {
	Users    models.UserRepository
	Events   models.EventRepository
	Feedback models.FeedbackRepository

	Reconciler *services.Reconciler
	Checkout   *services.Checkout
	Feedbacks  *services.Feedback
	Webhooks   *payments.WebhookVerifier

	Sessions    SessionVerifier
	Tokens      middlewares.TokenVerifier
	Media       *utils.MediaStore
	Invalidator services.Invalidator

	Redis            *redis.Client
	CacheTTL         time.Duration
	MaxUploadBytes   int64
	UploadDailyQuota int
}

type deps struct {
	Deps
	now func() time.Time
}

// RegisterRoutes mounts the API on server. The returned func stops the
// rate limiters' background sweepers.
func RegisterRoutes(server *gin.Engine, d Deps) (stop func()) {
	h := &deps{Deps: d, now: time.Now}

	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{RPS: 20, Burst: 40, IdleTTL: 3 * time.Minute})
	storeUserLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{RPS: 2, Burst: 5, IdleTTL: 10 * time.Minute})

	server.Use(middlewares.CORS())
	server.Use(globalLimiter.Middleware(middlewares.ByClientIP("ip:")))
	if d.Redis != nil {
		server.Use(middlewares.ResponseCache(d.Redis, d.CacheTTL))
	}

	server.GET("/", h.health)

	auth := server.Group("/auth")
	auth.POST("/store-user", storeUserLimiter.Middleware(middlewares.ByClientIP("store-user:")), h.storeUser)
	auth.GET("/verify-session", h.verifySession)

	events := server.Group("/api/events")
	events.POST("/create", middlewares.Identify(d.Tokens), h.createEvent)
	events.GET("/all", h.getEvents)
	events.GET("/my-events/:organizer_id", h.getOrganizerEvents)
	events.POST("/upload-image", h.uploadQuota(), h.uploadImage)
	events.GET("/images/:ref", h.serveImage)
	events.PUT("/update-images/:event_id", h.updateImages)
	events.POST("/create-payment", h.createPayment)
	events.POST("/update-attendees/:event_id", h.updateAttendees)
	events.POST("/webhook", h.webhook)
	events.GET("/:event_id", h.getEvent)

	comments := events.Group("/:event_id/comments")
	comments.GET("", h.getComments)
	comments.POST("", middlewares.Identify(d.Tokens), h.addComment)
	comments.DELETE("/:comment_id", middlewares.Authenticate(d.Tokens), h.deleteComment)

	feedback := server.Group("/api/feedback")
	feedback.GET("/health", h.feedbackHealth)
	feedback.POST("/submit/:event_id", h.submitFeedback)
	feedback.GET("/event/:event_id", h.getEventFeedback)
	feedback.GET("/user/:user_id/event/:event_id", h.getUserFeedback)
	feedback.GET("/pending/:user_id", h.getPendingFeedback)

	return func() {
		globalLimiter.Close()
		storeUserLimiter.Close()
	}
}

func (d *deps) uploadQuota() gin.HandlerFunc {
	if d.Redis == nil || d.UploadDailyQuota <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return middlewares.Quota(d.Redis, middlewares.QuotaRule{
		Limit:  d.UploadDailyQuota,
		Window: 24 * time.Hour,
		KeyFn:  middlewares.DailyUploadKey,
	})
}

// GET /
func (d *deps) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Event Management API is running"})
}

// GET /api/feedback/health
func (d *deps) feedbackHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Feedback API is running"})
}

// purgeEvent drops the cached lists and the cached copy of one event.
func (d *deps) purgeEvent(ctx context.Context, id string) {
	if d.Invalidator == nil {
		return
	}
	d.Invalidator.PurgeEventsList(ctx)
	if id != "" {
		d.Invalidator.PurgeEventItem(ctx, id)
	}
}

var kindStatus = map[services.Kind]int{
	services.KindInvalidInput: http.StatusBadRequest,
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusConflict,
	services.KindForbidden:    http.StatusForbidden,
	services.KindUpstream:     http.StatusInternalServerError,
}

// respondError writes err as {"error": msg} with the status of its kind.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": services.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
