// A simple HTTP server wrapper with orderly shutdown, for the daemon's status API.

package httpsrv

import (
	"context"
	"fmt"
	"net/http"
	"time"

	. "slurm2sql/common"
)

const (
	serverShutdownTimeoutSec = 10
)

type Server struct {
	verbose bool
	port    int
	failed  func(error)
	stop    chan bool
	server  *http.Server
}

// Create a server that will listen on `port` and dispatch to `handler`.  It will call
// `failed` if the server returns a failure code.  The server is not started by this.

func New(verbose bool, port int, handler http.Handler, failed func(error)) *Server {
	return &Server{
		verbose: verbose,
		port:    port,
		failed:  failed,
		stop:    make(chan bool),
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		},
	}
}

// Start the server.  This blocks the current goroutine until the server exits, so typical
// usage would be `go s.Start()`.  To force the server to shut down, call s.Stop().  When
// the server exits, it will call s.failed if there was an error.

func (s *Server) Start() {
	if s.verbose {
		Log.Infof("Listening on port %d", s.port)
	}
	err := s.server.ListenAndServe()
	if err != nil {
		if err != http.ErrServerClosed {
			Log.Error(err.Error())
			Log.Error("SERVER NOT RUNNING")
			if s.failed != nil {
				s.failed(err)
			}
		} else {
			Log.Info(err.Error())
		}
	}
	s.stop <- true
}

// Stop the server in an orderly way and wait for it to exit.

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(serverShutdownTimeoutSec)*time.Second,
	)
	defer cancel()
	s.server.Shutdown(ctx)
	<-s.stop
}
