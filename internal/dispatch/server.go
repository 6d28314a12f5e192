// Package dispatch implements the navigator's request dispatcher: a
// loopback-only TCP JSON server, path confinement, response truncation,
// session-level savings accounting, port probing, and idle self-shutdown
// (components H and I).
package dispatch

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seanrobertwright/rlm-navigator/internal/config"
	"github.com/seanrobertwright/rlm-navigator/internal/truncate"
)

// Server is the TCP front door: one accept loop spawning one goroutine per
// connection, plus an idle watchdog that triggers self-shutdown.
type Server struct {
	cfg *config.Config
	nav *Navigator
	log arbor.ILogger

	stats *SessionStats

	mu       sync.Mutex
	listener net.Listener
	lastAccept time.Time
	shutdown chan struct{}
	stopped  chan struct{}
}

// NewServer builds a dispatcher over an already-wired Navigator. cfg
// supplies the listen host/port, probe range, timeouts, and the response
// cap; nav supplies every subsystem an action may touch.
func NewServer(cfg *config.Config, nav *Navigator, log arbor.ILogger) *Server {
	return &Server{
		cfg:      cfg,
		nav:      nav,
		log:      log,
		stats:    newSessionStats(),
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run binds a listener (probing the configured port and the next
// PortProbeRange-1 ports), writes the port file if .rlm/ exists, then
// serves connections until Stop is called or the idle watchdog fires. It
// blocks until the server has fully shut down.
func (s *Server) Run() error {
	listener, boundPort, err := s.bind()
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	s.listener = listener
	s.log.Info().Int("port", boundPort).Msg("dispatcher listening")

	s.writePortFile(boundPort)
	defer s.removePortFile()

	s.mu.Lock()
	s.lastAccept = time.Now()
	s.mu.Unlock()

	var wg sync.WaitGroup
	if s.cfg.Service.IdleTimeoutSecs > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchdog()
		}()
	}

	s.acceptLoop()
	wg.Wait()
	close(s.stopped)
	return nil
}

// Stop signals the accept loop and watchdog to exit and closes the
// listener; safe to call once.
func (s *Server) Stop() {
	select {
	case <-s.shutdown:
		return
	default:
		close(s.shutdown)
	}
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	<-s.stopped
}

func (s *Server) bind() (net.Listener, int, error) {
	base := s.cfg.Service.Port
	tries := s.cfg.Service.PortProbeRange
	if tries <= 0 {
		tries = 1
	}
	var lastErr error
	for i := 0; i < tries; i++ {
		port := base + i
		addr := fmt.Sprintf("%s:%d", s.cfg.Service.Host, port)
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no port available in range %d-%d: %w", base, base+tries-1, lastErr)
}

func (s *Server) writePortFile(port int) {
	rlmDir := s.cfg.Service.Root + "/.rlm"
	if info, err := os.Stat(rlmDir); err != nil || !info.IsDir() {
		return
	}
	data, _ := json.Marshal(map[string]int{"port": port, "pid": os.Getpid()})
	if err := os.WriteFile(s.cfg.PortFile(), data, 0644); err != nil {
		s.log.Warn().Err(err).Msg("failed to write port file")
	}
}

func (s *Server) removePortFile() {
	_ = os.Remove(s.cfg.PortFile())
}

func (s *Server) acceptLoop() {
	acceptTimeout := time.Duration(s.cfg.Service.AcceptTimeoutMs) * time.Millisecond
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		type tcpDeadline interface {
			SetDeadline(time.Time) error
		}
		if ln, isTCP := s.listener.(tcpDeadline); isTCP {
			_ = ln.SetDeadline(time.Now().Add(acceptTimeout))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-s.shutdown:
				return
			default:
				s.log.Warn().Err(err).Msg("accept error")
				continue
			}
		}

		s.mu.Lock()
		s.lastAccept = time.Now()
		s.mu.Unlock()

		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	readTimeout := time.Duration(s.cfg.Service.ReadTimeoutSecs) * time.Second
	req, err := readRequest(conn, readTimeout)
	if err != nil {
		if err == errNoBytes {
			_, _ = conn.Write([]byte("ALIVE"))
			return
		}
		s.writeResponse(conn, map[string]interface{}{"error": "Invalid JSON"}, "invalid", 0)
		return
	}

	action, _ := stringArg(req, "action")
	result := s.safeDispatch(action, req)
	s.writeResponse(conn, result.body, action, result.fullLen)
}

// safeDispatch recovers a panicking handler into an error response, so one
// malformed request or extraction bug can never bring down the listener.
func (s *Server) safeDispatch(action string, req map[string]interface{}) (result actionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = errBody(fmt.Sprintf("%v", r))
		}
	}()
	return dispatchAction(s.nav, s.stats, action, req)
}

func (s *Server) writeResponse(conn net.Conn, body map[string]interface{}, action string, fullLen int64) {
	raw, err := json.Marshal(body)
	if err != nil {
		raw, _ = json.Marshal(map[string]interface{}{"error": "internal error"})
	}
	capBytes := s.cfg.Index.ResponseCapByte
	truncated := truncate.Text(string(raw), capBytes)

	served := int64(len(truncated))
	avoided := fullLen - served
	if avoided < 0 {
		avoided = 0
	}
	s.stats.record(action, served, avoided)

	_, _ = conn.Write([]byte(truncated))
}

func (s *Server) watchdog() {
	idleTimeout := time.Duration(s.cfg.Service.IdleTimeoutSecs) * time.Second
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastAccept)
			s.mu.Unlock()
			if idle >= idleTimeout {
				s.log.Info().Dur("idle", idle).Msg("idle timeout reached, shutting down")
				go s.Stop()
				return
			}
		}
	}
}
