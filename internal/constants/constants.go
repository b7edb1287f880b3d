// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information
const Version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

const (
	// DefaultHistoryLimit is the number of history points served when no limit is given
	DefaultHistoryLimit = 12

	// DefaultMaxHistoryLimit caps caller-supplied history limits
	DefaultMaxHistoryLimit = 500

	// DefaultMaxAllResults caps the diagnostic dump of every reading
	DefaultMaxAllResults = 5000

	// DefaultRefreshSeconds is the dashboard polling interval
	DefaultRefreshSeconds = 30

	// DefaultPort is used when neither config nor PORT sets one
	DefaultPort = 3000
)
