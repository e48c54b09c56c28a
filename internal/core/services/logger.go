package services

import (
	"log/slog"
	"time"
)

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
