package stats

import clock "time"

func deadline(t clock.Time) clock.Duration {
	return clock.Until(t) // want `time.Until в пакете internal/stats запрещён`
}
