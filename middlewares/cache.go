package middlewares

import (
	"bytes"
	"encoding/gob"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventapi/utils"
)

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

// CacheKeyFrom maps a cacheable request to its Redis key. Item keys come from
// utils.EventItemKey so a write can purge exactly one item.
func CacheKeyFrom(c *gin.Context) string {
	if c.Request.Method != http.MethodGet {
		return ""
	}
	switch c.FullPath() {
	case "/api/events/all":
		return utils.EventsListPrefix + "all"
	case "/api/events/my-events/:organizer_id":
		return utils.EventsListPrefix + "organizer:" + c.Param("organizer_id")
	case "/api/events/:event_id":
		return utils.EventItemKey(c.Param("event_id"))
	default:
		return ""
	}
}

// ResponseCache serves cached 2xx bodies for the event read routes.
// Redis errors degrade to an uncached response.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CacheKeyFrom(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					c.Writer.Header()[k] = vals
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				return
			}
		}

		buf := &bytes.Buffer{}
		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: buf}
		c.Writer = bw
		c.Header("X-Cache", "MISS")

		c.Next()

		if bw.Status() < 200 || bw.Status() >= 300 {
			return
		}
		header := bw.Header().Clone()
		header.Del("X-Cache")
		item := cachedBody{Status: bw.Status(), Header: header, Body: buf.Bytes()}

		var o bytes.Buffer
		if err := gob.NewEncoder(&o).Encode(item); err != nil {
			return
		}
		if err := rdb.Set(ctx, key, o.Bytes(), ttl).Err(); err != nil {
			log.Printf("cache: store %s: %v", key, err)
		}
	}
}

type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
