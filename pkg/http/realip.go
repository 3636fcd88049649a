package xhttp

import "strings"

// proxy headers carrying the original client address, in trust order
var realIPHeaders = []string{
	"CF-Connecting-IP", // Cloudflare
	"X-Real-IP",        // nginx
	"X-Forwarded-For",  // standard proxy
	"True-Client-IP",   // Akamai
}

// ClientIP returns the best-effort originating client address, looking
// through the usual proxy headers before falling back to the socket peer.
func ClientIP(ctx *RequestCtx) string {
	for _, h := range realIPHeaders {
		if v := ctx.Request.Header.Peek(h); len(v) > 0 {
			// X-Forwarded-For may carry a chain, the first hop is the client
			ip := string(v)
			if i := strings.IndexByte(ip, ','); i >= 0 {
				ip = ip[:i]
			}
			return strings.TrimSpace(ip)
		}
	}
	return ctx.RemoteIP().String()
}
