// Package lifecycle holds shared start/stop settings for fx hooks.
package lifecycle

import "time"

// DefaultTimeout bounds pings, shutdowns and other lifecycle hook work.
const DefaultTimeout = 10 * time.Second
