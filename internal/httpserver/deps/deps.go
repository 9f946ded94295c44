package deps

import (
	"time"

	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/session"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time // for testing, defaults to time.Now
	JWTSecret     []byte           // HS256 secret shared with the token issuer
	TrustProxy    bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	StreamOrigins []string         // browser origins allowed to open the websocket stream ("*" or empty = any)
	Sessions      *session.Manager // per-user reconciliation engines
	RedisClient   *redis.Client    // Redis client connection, nil in some tests
	ImportTrigger chan struct{}    // Channel to trigger a manual import run (nil if import disabled)
}
