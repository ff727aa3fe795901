package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"reawwise/internal/daemon"
	"reawwise/internal/logging"
)

const serviceName = "Reawwise"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. A stale
// socket left by a crashed process is replaced.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: serverCtx}); err != nil {
		cancel()
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until Close.
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
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "CLI commands may fail to reach the watch process"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart reawwise watch"),
				)
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

// Close stops the server and removes the socket file. Open client
// connections finish their current call first.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "CLI commands may dial a dead socket"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	snap := status.Connection
	*resp = StatusResponse{
		Running:     status.Running,
		PID:         os.Getpid(),
		State:       snap.State.String(),
		Address:     snap.Address,
		Project:     snap.Project.Name,
		LastError:   snap.LastError,
		Importing:   status.Importing,
		LockPath:    status.LockFilePath,
		StateDBPath: status.StateDBPath,
		HistoryPath: status.HistoryPath,
	}
	if snap.Info.Version.Year != 0 {
		resp.Version = snap.Info.Version.String()
	}
	return nil
}

func (s *service) Preview(req PreviewRequest, resp *PreviewResponse) error {
	ctrl := s.daemon.Session()
	if req.Refresh {
		if err := ctrl.Refresh(s.ctx); err != nil {
			return err
		}
	}
	update, err := ctrl.Preview(s.ctx)
	if err != nil {
		return err
	}
	settings, err := ctrl.Settings(s.ctx)
	if err != nil {
		return err
	}
	*resp = PreviewResponse{
		Session:        settings.Session,
		Destination:    settings.Destination,
		ConflictPolicy: settings.ConflictPolicy.String(),
		Issues:         settings.Validation.Messages(),
		Items:          update.Items,
		Hash:           update.Result.Hash,
		Rows:           update.Result.Tree.Rows(),
	}
	return nil
}

func (s *service) Confirmation(_ ConfirmationRequest, resp *ConfirmationResponse) error {
	pending, err := s.daemon.Session().PendingConfirmation(s.ctx)
	if err != nil {
		return err
	}
	*resp = ConfirmationResponse{Session: pending.Session, Destination: pending.Destination, Targets: pending.Targets}
	return nil
}

func (s *service) Transfer(_ TransferRequest, resp *TransferResponse) error {
	s.logger.Info("transfer requested over IPC", logging.String(logging.FieldEventType, "ipc_transfer"))
	summary, err := s.daemon.Session().TransferToWwise(s.ctx, nil)
	resp.Summary = summary
	if err != nil {
		resp.Error = err.Error()
	}
	return nil
}
