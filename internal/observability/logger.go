package observability

import "github.com/tphakala/skyarchive/internal/logger"

var log = logger.Global().Module("metrics")
