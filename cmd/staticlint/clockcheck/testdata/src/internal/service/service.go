package service

import "time"

func now() time.Time {
	return time.Now()
}
