package httptransport

import (
	"expvar"
	"sync"

	"broadside/internal/ws"
)

var (
	metricHealthChecks   = expvar.NewInt("http_health_checks_total")
	metricHistoryQueries = expvar.NewInt("history_query_total")
	metricHistoryErrors  = expvar.NewInt("history_query_errors_total")

	transportStatsOnce sync.Once
	transportHub       struct {
		sync.RWMutex
		hub *ws.Server
	}
)

// publishTransportStats exposes the hub counters as ws_transport. Routers
// built later (tests build many) repoint the published var at their hub.
func publishTransportStats(hub *ws.Server) {
	transportHub.Lock()
	transportHub.hub = hub
	transportHub.Unlock()
	transportStatsOnce.Do(func() {
		expvar.Publish("ws_transport", expvar.Func(func() any {
			transportHub.RLock()
			defer transportHub.RUnlock()
			if transportHub.hub == nil {
				return ws.Stats{}
			}
			return transportHub.hub.Stats()
		}))
	})
}
