package matchpush

import (
	"fmt"
	"strconv"

	"broadside/internal/match"
)

const (
	colorStarted = 0x3498db
	colorWon     = 0x2ecc71
	colorNoWin   = 0x95a5a6
)

// Format renders the events worth a notification; ok is false for the rest.
func Format(ev match.Event) (Message, bool) {
	switch ev.Kind {
	case match.EventMatchStarted:
		return Message{
			Title:       "Match started",
			Description: fmt.Sprintf("Player %d fires first.", int(ev.Turn)+1),
			Color:       colorStarted,
			Timestamp:   ev.At,
			Fields:      []Field{{Name: "match", Value: ev.MatchID, Inline: true}},
		}, true
	case match.EventMatchEnded:
		msg := Message{
			Title:     "Match ended",
			Color:     colorNoWin,
			Timestamp: ev.At,
			Fields: []Field{
				{Name: "match", Value: ev.MatchID, Inline: true},
				{Name: "reason", Value: ev.Reason, Inline: true},
			},
		}
		if ev.Winner.Valid() {
			msg.Color = colorWon
			msg.Description = fmt.Sprintf("Player %d wins.", int(ev.Winner)+1)
		} else {
			msg.Description = "No winner."
		}
		if ev.Seq > 0 {
			msg.Fields = append(msg.Fields, Field{Name: "turns", Value: strconv.Itoa(ev.Seq), Inline: true})
		}
		return msg, true
	}
	return Message{}, false
}
