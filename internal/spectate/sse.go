package spectate

import (
	"bufio"
	"encoding/json"
	"net/http"
)

// WriteSSE frames one event as id/event/data lines followed by a blank line.
func WriteSSE(w http.ResponseWriter, ev StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if ev.EventID != "" {
		bw.WriteString("id: " + ev.EventID + "\n")
	}
	bw.WriteString("event: " + ev.Event + "\n")
	bw.WriteString("data: ")
	bw.Write(payload)
	bw.WriteString("\n\n")
	return bw.Flush()
}

func SetSSEHeaders(w http.ResponseWriter) {
	for k, v := range map[string]string{
		"Content-Type":           "text/event-stream",
		"Cache-Control":          "no-cache, no-transform",
		"Connection":             "keep-alive",
		"X-Accel-Buffering":      "no",
		"X-Content-Type-Options": "nosniff",
	} {
		w.Header().Set(k, v)
	}
}
