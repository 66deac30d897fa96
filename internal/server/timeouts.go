// internal/server/timeouts.go
//
// HTTP server helper with explicit timeouts.
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time; must exceed the render
//                     timeout because POST /preview and POST /sites wait
//                     on the build and screenshot scripts
//   • IdleTimeout   – close keep-alives on idle clients (60 s)

package server

import (
	"net/http"
	"time"
)

// DefaultWriteTimeout is used when New gets a zero write timeout.
const DefaultWriteTimeout = 2 * time.Minute

// New constructs an *http.Server.  write bounds a whole response.
func New(addr string, handler http.Handler, write time.Duration) *http.Server {
	if write <= 0 {
		write = DefaultWriteTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}
