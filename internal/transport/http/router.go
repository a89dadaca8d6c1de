package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	apppublic "broadside/internal/app/public"
	"broadside/internal/app/status"
	"broadside/internal/config"
	"broadside/internal/mcpserver"
	"broadside/internal/spectate"
	"broadside/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Deps are the components the router serves. Public, Spectate and MCP may be
// nil; their routes are then left out.
type Deps struct {
	Config   config.ServerConfig
	Hub      *ws.Server
	Status   *status.Service
	Public   *apppublic.Service
	Session  spectate.SnapshotSource
	Spectate *spectate.EventBuffer
	MCP      *mcpserver.Server
}

func NewRouter(d Deps) *chi.Mux {
	statusHandlers := NewStatusHandlers(d.Status)
	publishTransportStats(d.Hub)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// The socket upgrade logs through the hub; httplog would hold the
	// hijacked response open in its logger.
	r.Get("/ws", d.Hub.HandleWS)

	r.With(APILogMiddleware()).Get("/health", statusHandlers.Health())
	r.With(APILogMiddleware()).Get("/healthz", statusHandlers.Health())
	r.With(APILogMiddleware(), AdminAuthMiddleware(d.Config.AdminAPIKey)).Get("/debug-state", statusHandlers.DebugState())

	if d.MCP != nil {
		r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
		r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", d.MCP.Handler())
		r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", d.MCP.Handler())
		r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", d.MCP.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		if d.Spectate != nil {
			r.Get("/public/spectate/events", spectate.EventsHandler(d.Spectate))
		}
		if d.Session != nil {
			r.Get("/public/spectate/state", spectate.StateHandler(d.Session))
		}
		if d.Public != nil {
			publicHandlers := NewPublicHandlers(d.Public)
			r.Get("/public/matches", publicHandlers.Matches())
			r.Get("/public/matches/{match_id}", publicHandlers.Match())
		}

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
