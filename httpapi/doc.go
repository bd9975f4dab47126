// Package httpapi exposes the session routes over gin:
//
//	POST /session/handle-audio-play  bearer token; body {userId, sessionId}
//	GET  /session/active             Session-ID guarded
//	POST /session/profile            Session-ID guarded
//	POST /session/logout             Session-ID guarded
//	POST /session/logout-all         Session-ID guarded
//	POST /session/login              development only
//	GET  /healthz, /readyz
//
// Error bodies are {"error": CODE, "message": text}.
package httpapi
