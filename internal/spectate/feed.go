package spectate

import "broadside/internal/match"

// Feed turns session events into public stream events. Connection ids and
// shot cells never reach spectators.
type Feed struct {
	buf *EventBuffer
}

func NewFeed(buf *EventBuffer) *Feed { return &Feed{buf: buf} }

func (f *Feed) OnMatchEvent(ev match.Event) {
	data := map[string]any{}
	switch ev.Kind {
	case match.EventSlotConnected, match.EventPlayerReady:
		data["slot"] = int(ev.Slot)
	case match.EventSlotDisconnected, match.EventSlotReleased:
		data["slot"] = int(ev.Slot)
		data["reason"] = ev.Reason
	case match.EventSlotReconnected:
		data["slot"] = int(ev.Slot)
		data["reconnect_count"] = ev.ReconnectCount
	case match.EventMatchStarted:
		data["first_mover"] = int(ev.Turn)
	case match.EventShotFired:
		data["shooter"] = int(ev.Slot)
		data["shots"] = ev.Seq
	case match.EventTurnChanged:
		data["turn"] = int(ev.Turn)
		data["seq"] = ev.Seq
	case match.EventMatchEnded:
		data["reason"] = ev.Reason
		if ev.Winner.Valid() {
			data["winner"] = int(ev.Winner)
		} else {
			data["winner"] = nil
		}
	default:
		return
	}
	data["at"] = ev.At.UnixMilli()
	f.buf.Append(string(ev.Kind), ev.MatchID, data)
	metricEventsTotal.Add(1)
}
