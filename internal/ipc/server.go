package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"scout/internal/daemon"
	"scout/internal/logging"
	"scout/internal/logs"
	"scout/internal/scrape"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Scout", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Version = status.Version
	resp.StartedAt = status.StartedAt
	resp.ActiveSessions = status.ActiveSessions
	resp.Subscribers = status.Subscribers
	resp.JournalPath = status.JournalPath
	resp.LockPath = status.LockFilePath
	resp.APIAddr = s.daemon.APIAddr()
	resp.Dependencies = status.Dependencies
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Search(req SearchRequest, resp *SearchResponse) error {
	request, err := scrape.New(req.Name, req.Email, req.Field, req.Specialties)
	if err != nil {
		return err
	}
	snap, err := s.daemon.Orchestrator().StartSession(s.ctx, request)
	if err != nil {
		return err
	}
	resp.Session = snap
	s.log().Info("session started via IPC",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldSessionID, snap.ID))
	return nil
}

func (s *service) Sessions(_ SessionsRequest, resp *SessionsResponse) error {
	resp.Sessions = s.daemon.Orchestrator().List()
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	if req.ID == "" {
		return errors.New("describe requires a session id")
	}
	status, err := s.daemon.Orchestrator().GetStatus(req.ID)
	if err != nil {
		return err
	}
	resp.Session = status.Session
	resp.Artifacts = status.Artifacts
	view, err := s.daemon.Orchestrator().GetSnapshot(req.ID)
	if err == nil {
		resp.Profiles = view.Profiles
		resp.Collaborators = view.Collaborators
	}
	return nil
}

func (s *service) Select(req SelectRequest, resp *SelectResponse) error {
	if req.ID == "" {
		return errors.New("select requires a session id")
	}
	snap, err := s.daemon.Orchestrator().SelectProfile(s.ctx, req.ID, req.Index)
	if err != nil {
		return err
	}
	resp.Session = snap
	s.log().Info("profile selected via IPC",
		logging.String(logging.FieldEventType, "profile_selected"),
		logging.String(logging.FieldSessionID, snap.ID),
		logging.Int("index", req.Index))
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if req.ID == "" {
		return errors.New("cancel requires a session id")
	}
	if err := s.daemon.Orchestrator().Cancel(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Cancelled = true
	s.log().Info("session cancelled via IPC",
		logging.String(logging.FieldEventType, "session_cancelled"),
		logging.String(logging.FieldSessionID, req.ID))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}
