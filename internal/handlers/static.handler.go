package handlers

import (
	"path/filepath"
	"strings"

	xhttp "github.com/mhkarimi/portfolio-backend/pkg/http"
	"github.com/valyala/fasthttp"
)

// NewStaticHandler serves the front-end build out of rootDir. It is meant
// to be installed as the router's NotFound handler so every path that is
// not an API route falls through to it. Unknown paths get index.html,
// which lets the single-page front-end own its own routing.
func NewStaticHandler(rootDir string) xhttp.RequestHandler {
	fs := &fasthttp.FS{
		Root:            rootDir,
		IndexNames:      []string{"index.html"},
		Compress:        true,
		AcceptByteRange: true,
		PathNotFound: func(ctx *fasthttp.RequestCtx) {
			ctx.Response.Reset()
			fasthttp.ServeFile(ctx, filepath.Join(rootDir, "index.html"))
		},
	}
	serveFiles := fs.NewRequestHandler()

	return func(ctx *xhttp.RequestCtx) {
		path := string(ctx.Path())
		if strings.HasPrefix(path, "/api/") {
			writeError(ctx, xhttp.StatusNotFound, "Not found")
			return
		}
		if !ctx.IsGet() && !ctx.IsHead() {
			writeError(ctx, xhttp.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		serveFiles(ctx)
	}
}
