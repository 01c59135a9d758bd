package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const defaultRate = "60-M"

// RateLimit throttles requests per client IP. rateFormat follows the
// limiter "<count>-<period>" format; an empty or invalid value falls
// back to 60 requests per minute.
func RateLimit(rateFormat string) gin.HandlerFunc {
	if rateFormat == "" {
		rateFormat = defaultRate
	}
	rate, err := limiter.NewRateFromFormatted(rateFormat)
	if err != nil {
		log.Printf("invalid rate limit %q, using %s", rateFormat, defaultRate)
		rate, err = limiter.NewRateFromFormatted(defaultRate)
		if err != nil {
			log.Fatalf("Error while running ratelimiter middleware")
		}
	}

	store := memory.NewStore()
	instance := limiter.New(store, rate)

	limiterMiddleware := stdlib.NewMiddleware(instance)

	return func(c *gin.Context) {
		limiterMiddleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if c.Writer.Status() == http.StatusTooManyRequests {
			c.Abort()
			return
		}
	}
}
