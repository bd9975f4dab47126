package middleware

import (
	"net/http"

	"github.com/MrEthical07/soundwave"
	"github.com/gin-gonic/gin"
)

// GinAuthenticate is [Authenticate] for gin routers. The identity is stored
// on the request context, so [UserIDFromContext] works from gin handlers too.
func GinAuthenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || tokens == nil {
			c.Next()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			GinAbort(c, soundwave.ErrTokenInvalid)
			return
		}
		userID, err := tokens.ParseAccessToken(token)
		if err != nil || userID == "" {
			GinAbort(c, soundwave.ErrTokenInvalid)
			return
		}

		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// GinSessionGuard is [SessionGuard] for gin routers. gin's FullPath template
// is not used; matching runs on the raw request path like the net/http guard.
func GinSessionGuard(checker SessionChecker, routes *RouteMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if routes != nil && !routes.Match(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		sessionID, err := checkRequest(c.Request, checker)
		if err != nil {
			GinAbort(c, err)
			return
		}

		c.Request = c.Request.WithContext(withSessionID(c.Request.Context(), sessionID))
		c.Next()
	}
}

// GinAbort aborts c with the JSON error response for err. Internal failures
// are attached to the gin context for the request logger.
func GinAbort(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, body)
}
