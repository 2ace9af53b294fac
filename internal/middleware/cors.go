package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the local frontends plus any configured origins.
func CORS(extraOrigins []string) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowOrigins = append(append([]string{}, devOrigins...), extraOrigins...)
	cc.AllowCredentials = true
	cc.AllowHeaders = []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin", "X-Requested-With", headerRequestID}
	cc.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cc.ExposeHeaders = []string{headerRequestID, "Retry-After"}
	cc.MaxAge = 10 * time.Minute
	return cors.New(cc)
}
