package deps

import (
	"context"
	"image"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/clipflow/internal/collab"
	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/pipeline"
)

// History is the command surface of the capture pipeline.
type History interface {
	Entries(ctx context.Context, limit int) ([]*domain.Entry, error)
	Entry(ctx context.Context, id int64) (*domain.Entry, error)
	CopyEntry(ctx context.Context, id int64) error
	TogglePin(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	ClearAll(ctx context.Context) (int, error)
	PauseMonitoring()
	ResumeMonitoring()
	Paused() bool
	Subscribe() (<-chan pipeline.ChangeEvent, func())
}

// Images loads archived images for thumbnails.
type Images interface {
	Load(path string) (image.Image, error)
}

// Settings reads and writes the settings document.
type Settings interface {
	Get() domain.AppSettings
	Save(domain.AppSettings) error
}

// Check is one readiness probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time    // for testing, defaults to time.Now
	AllowedHosts  []string            // Host headers allowed to access the server
	AllowedCIDRS  []string            // client IPs allowed to access the API
	TrustProxy    bool                // resolve client IP from proxy headers
	History       History             // capture pipeline commands
	Images        Images              // image archive, nil disables thumbnails
	ThumbnailSize int                 // longest thumbnail edge in pixels
	Settings      Settings            // settings document
	Collaborators []*collab.Emitter   // hotkey and tray signal emitters
	Checks        []Check             // readiness probes
	Gatherer      prometheus.Gatherer // /metrics source, nil disables it
	Heartbeat     time.Duration       // SSE keep-alive interval
	Closing       <-chan struct{}     // closed when the server shuts down
}
