package admission

import "time"

func admit(now time.Time) bool {
	return now.Before(time.Now()) // want `time.Now в пакете internal/admission запрещён`
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start) // want `time.Since в пакете internal/admission запрещён`
}

func window(now time.Time) time.Time {
	return now.Add(-time.Minute)
}
