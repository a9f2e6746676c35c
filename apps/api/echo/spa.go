package echoapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// spa serves the built client. Assets are served as files, known client routes get index.html
// and any other path is redirected to the default route.
func (s *Server) spa(ctx echo.Context) error {
	p := ctx.Request().URL.Path
	if strings.HasPrefix(p, "/api/") {
		return errHttpNotFound
	}

	dir := s.deps.Conf.Server.StaticDir
	if path.Ext(p) != "" {
		if dir == "" {
			return errHttpNotFound
		}
		fp := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if fi, err := os.Stat(fp); err == nil && !fi.IsDir() {
			return ctx.File(fp)
		}
		return errHttpNotFound
	}

	if _, ok := s.guard.Resolve(p); !ok {
		return ctx.Redirect(http.StatusFound, s.guard.Default())
	}
	if dir == "" {
		return errHttpNotFound
	}
	return ctx.File(filepath.Join(dir, "index.html"))
}
