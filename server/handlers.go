// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"database/sql"

	"hatewatch/db"
	"hatewatch/pipeline"
	"hatewatch/youtubeapi"
)

// Upstream is the slice of the YouTube client the REST handlers need.
type Upstream interface {
	VideoDetails(ctx context.Context, videoID string) (youtubeapi.VideoDetails, error)
	FetchCommentPage(ctx context.Context, videoID string, maxResults int64) ([]youtubeapi.TimedComment, error)
}

// Handlers holds dependencies for all HTTP handlers. The embedded context is
// the process root: ingestion sessions started from a request outlive that
// request and are cancelled only by shutdown or an explicit stop command.
type Handlers struct {
	db        *sql.DB
	store     *db.Store
	pipe      *pipeline.Pipeline
	hub       *pipeline.Hub
	commander *pipeline.Commander
	source    Upstream
	ctx       context.Context
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, dbx *sql.DB, pipe *pipeline.Pipeline, hub *pipeline.Hub, source Upstream) *Handlers {
	return &Handlers{
		db:        dbx,
		store:     &db.Store{DB: dbx},
		pipe:      pipe,
		hub:       hub,
		commander: &pipeline.Commander{Pipeline: pipe},
		source:    source,
		ctx:       ctx,
	}
}
