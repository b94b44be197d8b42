// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for calls to sibling services (wallet
// sync). Engine requests are small; 30s covers a slow wallet service.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
