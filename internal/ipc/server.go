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

	"vestry/internal/daemon"
	"vestry/internal/engine"
	"vestry/internal/event"
	"vestry/internal/logging"
	"vestry/internal/logs"
	"vestry/internal/registry"
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
func NewServer(ctx context.Context, path string, d *daemon.Daemon, reg *registry.Registry, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if reg == nil {
		return nil, errors.New("ipc server requires registry")
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
	srv := &service{daemon: d, registry: reg, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Vestry", srv); err != nil {
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
			logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	registry *registry.Registry
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StoreDBPath = status.StoreDBPath
	resp.LockPath = status.LockFilePath
	resp.EventCounts = make(map[string]int, len(status.EventCounts))
	for k, v := range status.EventCounts {
		resp.EventCounts[string(k)] = v
	}
	for _, lock := range status.ActiveRuns {
		resp.ActiveRuns = append(resp.ActiveRuns, ActiveRun{
			EventID:     lock.EventID,
			RunID:       lock.RunID,
			AcquiredAt:  lock.AcquiredAt,
			HeartbeatAt: lock.HeartbeatAt,
		})
	}
	for _, adapter := range status.Adapters {
		resp.Adapters = append(resp.Adapters, AdapterStatus{
			Module:    adapter.Module,
			Command:   adapter.Command,
			Builtin:   adapter.Builtin,
			Available: adapter.Available,
			Detail:    adapter.Detail,
		})
	}
	return nil
}

func (s *service) EventCreate(req EventCreateRequest, resp *EventCreateResponse) error {
	evt, err := s.daemon.CreateEvent(s.ctx, daemon.CreateEventRequest{
		Title:     req.Title,
		StartsAt:  req.StartsAt,
		Speaker:   req.Speaker,
		Series:    req.Series,
		Scripture: req.Scripture,
		Language:  req.Language,
		Notes:     req.Notes,
		Toggles:   req.Modules,
	})
	if err != nil {
		return err
	}
	resp.Event = detail(evt, event.StatusPending, s.registry.Names())
	s.log().Info("event created via IPC",
		logging.String(logging.FieldEventType, "event_create"),
		logging.String(logging.FieldEventID, evt.ID))
	return nil
}

func (s *service) EventList(req EventListRequest, resp *EventListResponse) error {
	events, statuses, err := s.daemon.ListEvents(s.ctx)
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(req.Statuses))
	for _, status := range req.Statuses {
		want[status] = true
	}
	resp.Events = make([]EventSummary, 0, len(events))
	for i, evt := range events {
		if len(want) > 0 && !want[string(statuses[i])] {
			continue
		}
		resp.Events = append(resp.Events, summarize(evt, statuses[i]))
	}
	return nil
}

func (s *service) EventDescribe(req EventDescribeRequest, resp *EventDescribeResponse) error {
	if req.ID == "" {
		return errors.New("event id is required")
	}
	evt, status, err := s.daemon.GetEvent(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Event = detail(evt, status, s.registry.Names())
	return nil
}

func (s *service) EventUpdate(req EventUpdateRequest, resp *EventUpdateResponse) error {
	if req.ID == "" {
		return errors.New("event id is required")
	}
	evt, err := s.daemon.UpdateEvent(s.ctx, req.ID, daemon.UpdateEventRequest{
		Speaker:   req.Speaker,
		Series:    req.Series,
		Scripture: req.Scripture,
		Language:  req.Language,
		Notes:     req.Notes,
		Toggles:   req.Modules,
		Archived:  req.Archived,
	})
	if err != nil {
		return err
	}
	_, status, err := s.daemon.GetEvent(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Event = detail(evt, status, s.registry.Names())
	return nil
}

func (s *service) EventAttach(req EventAttachRequest, resp *EventAttachResponse) error {
	if req.ID == "" {
		return errors.New("event id is required")
	}
	evt, err := s.daemon.AttachInput(s.ctx, req.ID, req.Path)
	if err != nil {
		return err
	}
	_, status, err := s.daemon.GetEvent(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Event = detail(evt, status, s.registry.Names())
	return nil
}

func (s *service) EventRemove(req EventRemoveRequest, resp *EventRemoveResponse) error {
	if req.ID == "" {
		return errors.New("event id is required")
	}
	if err := s.daemon.RemoveEvent(s.ctx, req.ID, req.DeleteFiles); err != nil {
		return err
	}
	resp.Removed = true
	s.log().Info("event removed via IPC",
		logging.String(logging.FieldEventType, "event_remove"),
		logging.String(logging.FieldEventID, req.ID))
	return nil
}

func (s *service) Run(req RunRequest, resp *RunResponse) error {
	if req.ID == "" {
		return errors.New("event id is required")
	}
	s.log().Info("run requested via IPC",
		logging.String(logging.FieldEventType, "run_request"),
		logging.String(logging.FieldEventID, req.ID))
	report, err := s.daemon.Run(s.ctx, req.ID, req.Force, req.ForceAll)
	if err != nil {
		return err
	}
	resp.Report = convertReport(report)
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
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func convertReport(report engine.RunReport) RunReport {
	return RunReport{
		EventID:    report.EventID,
		RunID:      report.RunID,
		Outcome:    string(report.Outcome),
		Status:     string(report.Status),
		Planned:    report.Planned,
		Executed:   report.Executed,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
}
