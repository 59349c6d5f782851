package http

import (
	"net/http"

	klog "kashela/internal/log"
)

// klogFrom returns the request-scoped logger.
func klogFrom(r *http.Request) *klog.Logger {
	return klog.FromContext(r.Context())
}
