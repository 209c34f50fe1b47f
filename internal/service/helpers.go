package service

import (
	"time"
)

func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func floatPtr(v float64) *float64 {
	return &v
}
