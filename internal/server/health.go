package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/inkbridge/inkbridge/pkg/ops"
)

// healthMux builds the HTTP surface: a small status page, /health, /ready.
// The handlers lock the session, so a long-running operation would otherwise
// hang every probe; the whole surface answers 503 after the configured
// health check timeout instead.
func (s *Server) healthMux(registry *ops.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome(registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		s.session.Lock()
		info := s.session.Info()
		s.session.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "healthy",
			"session":       s.cfg.SessionID,
			"elementCount":  info.ElementCount,
			"uptimeSeconds": int(time.Since(s.started).Seconds()),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	return http.TimeoutHandler(mux, s.cfg.HealthCheckTimeout, "health check timed out\n")
}

// homePageTemplate is the HTML for the host status page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>inkbridge host</title>
  <style>
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    table { border-collapse: collapse; max-width: 700px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.4rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
  </style>
</head>
<body>
  <h1>inkbridge host</h1>
  <p>Session <span class="stat">{{.Session}}</span> &middot; document
     <span class="stat">{{.Width}} &times; {{.Height}}</span> &middot;
     <span class="stat">{{.ElementCount}}</span> elements</p>
  <h2>Elements</h2>
  <table>
    <tr><th>Tag</th><th>Count</th></tr>
    {{range $tag, $count := .ElementCounts}}<tr><td>{{$tag}}</td><td>{{$count}}</td></tr>
    {{end}}
  </table>
  <h2>Operations</h2>
  <table>
    <tr><th>Name</th></tr>
    {{range .Operations}}<tr><td>{{.}}</td></tr>
    {{end}}
  </table>
</body>
</html>`

func (s *Server) handleHome(registry *ops.Registry) http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.session.Lock()
		info := s.session.Info()
		s.session.Unlock()
		data := struct {
			Session       string
			Width, Height string
			ElementCount  int
			ElementCounts map[string]int
			Operations    []string
		}{
			Session:       s.cfg.SessionID,
			Width:         info.Width,
			Height:        info.Height,
			ElementCount:  info.ElementCount,
			ElementCounts: info.ElementCounts,
			Operations:    registry.Names(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		tmpl.Execute(w, data)
	}
}
