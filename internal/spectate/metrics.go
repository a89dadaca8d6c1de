package spectate

import "expvar"

var (
	metricSSEConnectionsTotal  = expvar.NewInt("spectate_sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("spectate_sse_connections_active")
	metricEventsTotal          = expvar.NewInt("spectate_events_total")
	metricEventsDropped        = expvar.NewInt("spectate_events_dropped")
)
