package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type QuotaRule struct {
	Limit  int                       // requests allowed per window
	Window time.Duration             // starts at the first request
	KeyFn  func(*gin.Context) string // empty key skips the check
}

// Quota counts requests per key in Redis (INCR + EXPIRE). When Redis is
// unreachable requests are let through.
func Quota(rdb *redis.Client, rule QuotaRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.KeyFn(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if n == 1 {
			_ = rdb.Expire(ctx, key, rule.Window).Err()
		}
		if int(n) > rule.Limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Usage quota exceeded. Please try again later.",
			})
			return
		}
		c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", n, rule.Limit))
		c.Next()
	}
}

// DailyUploadKey keys the upload quota by client IP and UTC day.
func DailyUploadKey(c *gin.Context) string {
	return fmt.Sprintf("quota:upload:%s:%s", c.ClientIP(), time.Now().UTC().Format("2006-01-02"))
}
