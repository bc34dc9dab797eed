package handlers

import (
	"time"

	"tailcast/internal/database"
	"tailcast/internal/startup"
	"tailcast/internal/transcoder"
)

type Handlers struct {
	transcoder *transcoder.Transcoder
	db         *database.Database // nil when history is disabled
	config     *startup.Config
	startTime  time.Time
}

func New(trans *transcoder.Transcoder, db *database.Database, config *startup.Config) *Handlers {
	return &Handlers{
		transcoder: trans,
		db:         db,
		config:     config,
		startTime:  time.Now(),
	}
}
