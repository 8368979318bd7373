package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/gate"
	"github.com/mataager/SwiftStore/internal/jobs"
	"github.com/mataager/SwiftStore/internal/middleware"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

type Ingester interface {
	Ingest(ctx context.Context, file asset.Source, provider upload.Provider, creds upload.Credentials, opts *transcode.Options) (upload.Result, error)
}

type CredentialSource interface {
	DefaultProvider() (upload.Provider, error)
	For(p upload.Provider, storeLabel string) (upload.Credentials, error)
}

type Stager interface {
	PutStaging(ctx context.Context, key string, data []byte, contentType string) error
}

type JobQueue interface {
	EnqueueIngest(ctx context.Context, job jobs.IngestJob) error
	SaveResult(ctx context.Context, result jobs.Result) error
	GetResult(ctx context.Context, jobID string) (jobs.Result, error)
}

type AccessChecker interface {
	Check(ctx context.Context, storeID string) gate.Decision
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call. Staging and Jobs may be nil
// when the async path is not configured.
type Deps struct {
	Pipeline       Ingester
	Credentials    CredentialSource
	Staging        Stager
	Jobs           JobQueue
	Gate           AccessChecker
	Checks         map[string]Pinger
	Transcode      transcode.Options
	MaxUploadBytes int64
	Environment    string
}

type HandlerSet struct {
	log  zerolog.Logger
	deps Deps
}

func NewHandlerSet(log zerolog.Logger, deps Deps) HandlerSet {
	return HandlerSet{log: log, deps: deps}
}

// Register mounts the JSON API under router (normally /api).
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		assets := v1.Group("/assets")
		assets.Use(middleware.BodyLimit(h.deps.MaxUploadBytes))
		assets.POST("", h.UploadAsset)
		assets.POST("/async", h.UploadAssetAsync)

		v1.GET("/jobs/:id", h.GetJob)
		v1.GET("/stores/:storeId/access", h.StoreAccess)
	}
}

// RegisterPages mounts the HTML gate pages served to storefront visitors.
func (h HandlerSet) RegisterPages(router gin.IRoutes) {
	router.GET("/stores/:storeId/gate", h.StoreGate)
	router.GET("/gate", h.StoreGate)
}
