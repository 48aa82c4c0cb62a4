package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client IP and forgets
// buckets that have been idle for a few minutes.
type ipLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func (l *ipLimiters) cleanup() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		for ip, c := range l.clients {
			if time.Since(c.lastSeen) > 3*time.Minute {
				delete(l.clients, ip)
			}
		}
		l.mu.Unlock()
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, exists := l.clients[ip]
	if !exists {
		limiter := rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = &clientLimiter{limiter, time.Now()}
		return limiter
	}

	cl.lastSeen = time.Now()
	return cl.limiter
}

// RateLimit builds a per-IP limiter middleware allowing perSecond
// sustained requests with the given burst.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	l := &ipLimiters{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
	go l.cleanup()

	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}

		c.Next()
	}
}
