package mw

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"ward-status-backend/internal/cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves GET responses from store while they are fresh.
// Handlers that mutate data invalidate the affected key prefixes.
func Cache(store *cache.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if hit, found := store.Get(key); found {
			hit.(cachedResponse).replay(c)
			return
		}

		recorder := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		if cacheable(recorder.Status()) {
			store.Set(key, cachedResponse{
				status:  recorder.Status(),
				headers: recorder.Header().Clone(),
				body:    recorder.body.Bytes(),
			})
		}
	}
}

// cacheable reports whether a response with status may be served again. Errors never are.
func cacheable(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func (r cachedResponse) replay(c *gin.Context) {
	for k, v := range r.headers {
		c.Writer.Header()[k] = v
	}
	c.Writer.Header().Set("X-Cache", "HIT")
	c.Writer.WriteHeader(r.status)
	c.Writer.Write(r.body)
	c.Abort()
}
