package server

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reward_collector/internal/domain"
)

// LinkService is the slice of the core the read surface consumes.
type LinkService interface {
	ValidLinks(ctx context.Context) ([]domain.Link, error)
	LastRunStats(ctx context.Context) (*domain.Run, error)
	Invalidate(ctx context.Context, url string) error
	Cleanup(ctx context.Context, dryRun bool) (int, error)
	AllowedDomain() string
}

const indexTemplate = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>Coin Master - Reward Links</title>
<style>body{background:#111;color:#eee;font-family:Arial;padding:18px}a{color:#6cf}table{width:100%;border-collapse:collapse}th,td{border:1px solid #333;padding:6px}</style>
</head><body>
<h1>Valid reward links (final domain: {{.Allowed}})</h1>
<p><a href="/export.csv">Export CSV</a> | <a href="/export.json">Export JSON</a> | <a href="/cleanup">Run cleanup</a></p>
<table><thead><tr><th>Source</th><th>Title / URL</th><th>Final URL</th><th>Action</th></tr></thead><tbody>
{{range .Links}}<tr>
<td>{{.Source}}</td>
<td><a href="{{.URL}}" target="_blank">{{if .Title}}{{.Title}}{{else}}{{.URL}}{{end}}</a></td>
<td><a href="{{.FinalURL}}" target="_blank">{{.FinalURL}}</a></td>
<td><a href="/invalidate?u={{.URL}}">Invalidate</a></td>
</tr>{{end}}
</tbody></table>
</body></html>`

// Server exposes the accepted link set over HTTP.
type Server struct {
	service LinkService
	logger  *slog.Logger
	engine  *gin.Engine
}

func New(service LinkService, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		service: service,
		logger:  logger.With("component", "server"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(template.Must(template.New("index").Parse(indexTemplate)))

	engine.GET("/", s.index)
	engine.GET("/export.csv", s.exportCSV)
	engine.GET("/export.json", s.exportJSON)
	engine.GET("/health", s.health)
	engine.GET("/invalidate", s.invalidate)
	engine.GET("/cleanup", s.cleanup)

	s.engine = engine
	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) index(c *gin.Context) {
	links, err := s.service.ValidLinks(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to load links")
		return
	}

	c.HTML(http.StatusOK, "index", gin.H{
		"Allowed": s.service.AllowedDomain(),
		"Links":   links,
	})
}

func (s *Server) exportCSV(c *gin.Context) {
	links, err := s.service.ValidLinks(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to load links")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename=coinmaster_links.csv`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"url", "source", "title", "final_url"})
	for _, l := range links {
		_ = w.Write([]string{l.URL, l.Source, l.Title, l.FinalURL})
	}
	w.Flush()
}

type exportedLink struct {
	URL      string `json:"url"`
	Source   string `json:"source"`
	Title    string `json:"title"`
	FinalURL string `json:"final_url"`
}

func (s *Server) exportJSON(c *gin.Context) {
	links, err := s.service.ValidLinks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load links"})
		return
	}

	out := make([]exportedLink, 0, len(links))
	for _, l := range links {
		out = append(out, exportedLink{
			URL:      l.URL,
			Source:   l.Source,
			Title:    l.Title,
			FinalURL: l.FinalURL,
		})
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	last, err := s.service.LastRunStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run history"})
		return
	}

	links, err := s.service.ValidLinks(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load links"})
		return
	}

	resp := gin.H{
		"last_run":          nil,
		"checked":           0,
		"valid":             0,
		"duration":          0.0,
		"total_valid_links": len(links),
	}
	if last != nil {
		resp["last_run"] = last.Timestamp.Format(time.RFC3339)
		resp["checked"] = last.Checked
		resp["valid"] = last.Valid
		resp["duration"] = last.Duration
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) invalidate(c *gin.Context) {
	url := c.Query("u")
	if url == "" {
		c.String(http.StatusBadRequest, "missing u parameter")
		return
	}

	if err := s.service.Invalidate(c.Request.Context(), url); err != nil {
		c.String(http.StatusInternalServerError, "failed to invalidate")
		return
	}

	s.logger.Info("link invalidated", "url", url)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) cleanup(c *gin.Context) {
	removed, err := s.service.Cleanup(c.Request.Context(), false)
	if err != nil {
		c.String(http.StatusInternalServerError, "cleanup failed")
		return
	}

	s.logger.Info("cleanup triggered", "removed", removed)
	c.Redirect(http.StatusFound, fmt.Sprintf("/?removed=%d", removed))
}
