package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_meta_start"
	cacheHitKey      = "cache_hit"
	elapsedKey       = "processing_time_ms"
)

// WithResponseMeta enables the "meta" block for cached gradebook reads.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the summary came from Redis.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaOf(c); meta != nil {
		meta[cacheHitKey] = hit
	}
}

// ExtractMeta returns the metadata collected so far, stamped with the time
// spent since WithResponseMeta ran. Routes without WithResponseMeta get nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaOf(c)
	if meta == nil {
		return nil
	}
	if start, ok := c.Get(responseStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta[elapsedKey] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func metaOf(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := raw.(map[string]interface{})
	return meta
}
