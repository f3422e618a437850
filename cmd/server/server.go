package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/MemDB"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/db"
	"github.com/nickyhof/MemDB/logging"
	"golang.org/x/sync/errgroup"
)

// Server is a TCP SQL server that exposes the MemDB engine.
type Server struct {
	listener   net.Listener
	instance   *MemDB.Instance
	identity   core.Identity
	authConfig *AuthConfig
	logger     *slog.Logger

	// the engine runs one statement at a time
	mu     sync.Mutex
	engine *db.Engine

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewServer creates a server without authentication. Checkpoints are
// authored by identity.
func NewServer(instance *MemDB.Instance, identity core.Identity) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &Server{
		instance: instance,
		identity: identity,
		logger:   logging.WithComponent("server"),
		engine:   instance.Engine(identity),
		ctx:      ctx,
		cancel:   cancel,
		group:    group,
	}
}

// NewServerWithAuth creates a server that requires AUTH JWT before any
// statement. Checkpoints are authored by the token's identity.
func NewServerWithAuth(instance *MemDB.Instance, identity core.Identity, authConfig *AuthConfig) *Server {
	server := NewServer(instance, identity)
	server.authConfig = authConfig
	return server
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

// StartTLS begins listening for TLS connections with the given key pair.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	s.logger.Info("listening", "addr", listener.Addr().String(), "auth", s.authConfig != nil)
	s.group.Go(s.acceptLoop)
}

// Stop closes the listener and every open connection, then waits for the
// handlers to finish.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	return s.group.Wait()
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		s.group.Go(func() error {
			s.handleConnection(conn)
			return nil
		})
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	state := &ConnectionState{session: uuid.NewString(), identity: s.identity}
	logger := logging.WithSession(state.session).With("component", "server", "remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && s.ctx.Err() == nil {
				logger.Warn("read failed", "error", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			logger.Info("client disconnected")
			return
		}

		data, err := EncodeResponse(s.handleLine(line, state))
		if err != nil {
			logger.Error("failed to encode response", "error", err)
			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleLine(line string, state *ConnectionState) Response {
	if isAuthCommand(line) {
		if s.authConfig == nil {
			return errorResponse("auth", errors.New("authentication not configured"))
		}
		return s.handleAuth(line, state)
	}
	if err := s.authorize(state); err != nil {
		return errorResponse("", err)
	}

	req, err := DecodeRequest([]byte(line))
	if err != nil {
		return errorResponse("", fmt.Errorf("invalid request: %w", err))
	}
	if req.Checkpoint != "" {
		return s.checkpoint(req.Checkpoint, state)
	}
	return s.executeQuery(req)
}

func (s *Server) checkpoint(message string, state *ConnectionState) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := s.engine.CheckpointAs(state.Identity(), message)
	if err != nil {
		return errorResponse("checkpoint", err)
	}
	return resultResponse("checkpoint", CheckpointResponse{ID: txn.Id, Author: txn.Author, Message: txn.Message})
}

func (s *Server) executeQuery(req Request) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result, err := s.engine.Execute(req.Query, req.Args...)
	if err != nil {
		s.logger.Debug("statement failed", "error", err, "elapsed", time.Since(start))
		return errorResponse("", err)
	}

	switch r := result.(type) {
	case db.QueryResult:
		return resultResponse("query", QueryResponse{
			Columns:     r.Columns,
			Data:        r.Data(),
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		})
	case db.MutationResult:
		return resultResponse("mutation", MutationResponse{
			Value:    r.Value,
			InsertID: r.InsertID,
			NumRows:  r.NumRows,
			TimeMs:   r.ExecutionTimeSec * 1000,
		})
	default:
		return Response{Success: true, Type: "unknown"}
	}
}
