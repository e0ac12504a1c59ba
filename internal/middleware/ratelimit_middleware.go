package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

const (
	maxFailedLogins   = 5
	failedLoginWindow = time.Minute
)

// LoginRateLimiter counts failed logins per IP. Only failures count, so a
// staff member who types the right password is never throttled.
type LoginRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	now      func() time.Time
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

func NewLoginRateLimiter() *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts: make(map[string]*attemptInfo),
		now:      time.Now,
	}
}

// Blocked reports whether ip has used up its failures for the current window.
func (r *LoginRateLimiter) Blocked(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.attempts[ip]
	if !ok {
		return false
	}
	if r.now().Sub(info.firstAt) > failedLoginWindow {
		delete(r.attempts, ip)
		return false
	}
	return info.count >= maxFailedLogins
}

// Fail records one failed attempt from ip.
func (r *LoginRateLimiter) Fail(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, ok := r.attempts[ip]
	if !ok || now.Sub(info.firstAt) > failedLoginWindow {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return
	}
	info.count++
}

// Reset forgets ip after a successful login.
func (r *LoginRateLimiter) Reset(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, ip)
}

// Guard rejects requests from an IP that is currently blocked.
func (r *LoginRateLimiter) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.Blocked(c.ClientIP()) {
			utils.Error(c, 429, utils.ErrTooManyAttempts.Error(), "Too many failed login attempts. Try again in a minute.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Cleanup drops expired entries every interval until stop is closed.
func (r *LoginRateLimiter) Cleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, info := range r.attempts {
				if now.Sub(info.firstAt) > failedLoginWindow {
					delete(r.attempts, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}
