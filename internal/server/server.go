// Package server exposes a thin HTTP shell over a single open ZIM archive:
// browsing the directory, fetching an article by (namespace, url), and
// resolving the declared main page. It is deliberately generic — unlike the
// Wikipedia-specific WML rendering this package's ancestor served, there is
// no markup transcoding here, only direct byte passthrough with the
// directory entry's MIME type.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-zim/zim/pkg/zim"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// archive is the single open ZIM archive this process serves. A future
// multi-archive shell would key this by name instead.
var archive *zim.Reader

// Open loads the archive at path and makes it available to the registered
// routes. Must be called once before RegisterRoutes handles any request.
func Open(path string) error {
	r, err := zim.Open(path)
	if err != nil {
		return err
	}
	archive = r
	log.Printf("server: serving archive %s", path)
	return nil
}

// entrySummary is the JSON shape returned by the directory listing endpoint.
type entrySummary struct {
	Index      uint32 `json:"index"`
	Namespace  string `json:"namespace"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	IsRedirect bool   `json:"is_redirect"`
}

func serveDirectory(c echo.Context) error {
	if archive == nil {
		return serveError(c, http.StatusServiceUnavailable, "archive not loaded")
	}

	entries, err := archive.Directory()
	if err != nil {
		log.Printf("server: directory: %v", err)
		return serveError(c, http.StatusInternalServerError, "could not read directory")
	}

	out := make([]entrySummary, len(entries))
	for i, e := range entries {
		out[i] = entrySummary{
			Index:      e.Index,
			Namespace:  zim.NamespaceString(e.Namespace),
			URL:        e.URL,
			Title:      e.Title,
			IsRedirect: e.IsRedirect,
		}
	}
	return c.JSON(http.StatusOK, out)
}

func serveArticle(c echo.Context) error {
	if archive == nil {
		return serveError(c, http.StatusServiceUnavailable, "archive not loaded")
	}

	ns, url, err := parseNamespacedPath(c.Param("*"))
	if err != nil {
		return serveError(c, http.StatusBadRequest, err.Error())
	}

	content, entry, err := archive.GetEntryContent(ns, url)
	if err != nil {
		log.Printf("server: article %c/%s: %v", ns, url, err)
		return serveError(c, http.StatusNotFound, "article not found")
	}

	mimeType := mimeTypeForEntry(entry)
	return c.Blob(http.StatusOK, mimeType, content)
}

func serveMainPage(c echo.Context) error {
	if archive == nil {
		return serveError(c, http.StatusServiceUnavailable, "archive not loaded")
	}

	entry, ok, err := archive.GetMainPage()
	if err != nil {
		return serveError(c, http.StatusInternalServerError, "could not read main page")
	}
	if !ok {
		return serveError(c, http.StatusNotFound, "archive declares no main page")
	}

	content, err := archive.GetArticleContent(entry)
	if err != nil {
		return serveError(c, http.StatusInternalServerError, "could not read main page content")
	}

	return c.Blob(http.StatusOK, mimeTypeForEntry(entry), content)
}

func serveError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// mimeTypeForEntry resolves an entry's MIME type via the archive's table,
// falling back to a generic octet stream if the index is somehow stale.
func mimeTypeForEntry(e zim.Entry) string {
	mimes, err := archive.MimeTypes()
	if err != nil || int(e.MimeTypeIndex) >= len(mimes) {
		return "application/octet-stream"
	}
	return mimes[e.MimeTypeIndex]
}

// RegisterRoutes wires the archive-browsing endpoints onto e, with the same
// rate limiter shape the predecessor WAP shell used: a fixed
// requests-per-second budget with a short burst allowance, tracked
// separately for each client IP.
func RegisterRoutes(e *echo.Echo) {
	config := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     40,
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.String(http.StatusForbidden, "rate limiter error")
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.String(http.StatusTooManyRequests, "too many requests, slow down")
		},
	}
	e.Use(middleware.RateLimiterWithConfig(config))

	e.GET("/", serveMainPage)
	e.GET("/directory", serveDirectory)
	e.GET("/article/*", serveArticle)
}
