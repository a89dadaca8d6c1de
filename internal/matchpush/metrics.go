package matchpush

import "expvar"

var (
	metricQueuedTotal       = expvar.NewInt("match_push_queued_total")
	metricDroppedTotal      = expvar.NewInt("match_push_dropped_total")
	metricRetryTotal        = expvar.NewInt("match_push_retry_total")
	metricRetryDroppedTotal = expvar.NewInt("match_push_retry_dropped_total")
	metricSentTotal         = expvar.NewInt("match_push_sent_total")
	metricFailedTotal       = expvar.NewInt("match_push_failed_total")
	metricQueueLen          = expvar.NewInt("match_push_queue_len")
)
