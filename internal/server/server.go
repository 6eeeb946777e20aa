// Package server implements the engine's NDJSON JSON-RPC 2.0 loop.
package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/internal/logging"
	"github.com/personamatch/engine/pkg/types"
)

// Handler is the function signature for JSON-RPC method handlers.
type Handler func(ctx context.Context, session *Session, params json.RawMessage) (any, *types.RPCError)

// defaultMaxConcurrent is the default value for maxConcurrent (sequential behavior).
const defaultMaxConcurrent = 1

// maxLineBytes bounds a single request line.
const maxLineBytes = 4 * 1024 * 1024

// Server reads NDJSON requests from an io.Reader and writes NDJSON responses to an io.Writer.
type Server struct {
	reader        *bufio.Scanner
	writer        *bufio.Writer
	mu            sync.Mutex // protects writer
	session       *Session
	handlers      map[string]Handler
	logger        *slog.Logger
	maxConcurrent int
	semaphore     chan struct{}
	inflight      sync.WaitGroup
}

// New creates a sequential Server reading from in and writing to out.
func New(in io.Reader, out io.Writer, logger *slog.Logger) *Server {
	return NewWithConcurrency(in, out, logger, defaultMaxConcurrent)
}

// NewWithConcurrency creates a Server with a configurable concurrency limit.
// When maxConcurrent <= 1, requests are processed sequentially.
// When maxConcurrent > 1, up to maxConcurrent requests are dispatched concurrently,
// each holding a semaphore slot for the duration of handler execution.
func NewWithConcurrency(in io.Reader, out io.Writer, logger *slog.Logger, maxConcurrent int) *Server {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	return &Server{
		reader:        scanner,
		writer:        bufio.NewWriter(out),
		session:       NewSession(),
		handlers:      make(map[string]Handler),
		logger:        logger,
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
	}
}

// RegisterHandler registers a handler for the given JSON-RPC method name.
func (s *Server) RegisterHandler(method string, h Handler) {
	s.handlers[method] = h
}

// Run reads NDJSON lines from the reader, dispatches to handlers, and writes responses until
// the reader is closed, shutdown is requested or the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for s.reader.Scan() {
			line := make([]byte, len(s.reader.Bytes()))
			copy(line, s.reader.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := s.reader.Err(); err != nil {
			scanErr <- err
		}
	}()

	// When maxConcurrent == 1 requests are handled synchronously so shutdown
	// is observed before the next line is read.
	dispatchOne := func(line []byte) {
		s.semaphore <- struct{}{}
		s.inflight.Add(1)
		handle := func() {
			defer s.inflight.Done()
			defer func() { <-s.semaphore }()
			s.writeResponse(s.dispatch(ctx, line))
		}
		if s.maxConcurrent > 1 {
			go handle()
		} else {
			handle()
		}
	}
	defer s.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			dispatchOne(line)
			if s.session.State() == StateShuttingDown {
				return nil
			}
		}
	}
}

// dispatch parses a raw JSON line into a Request and routes it to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, line []byte) *types.Response {
	var req types.Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Error("parse error", logging.ErrAttr(err))
		return types.NewErrorResponse(0, types.NewRPCError(
			types.ErrParseError,
			"parse error",
			types.ErrTypeParseError,
			false,
			err.Error(),
		))
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		s.logger.Error("invalid request", "id", req.ID, "method", req.Method)
		return types.NewErrorResponse(req.ID, types.NewRPCError(
			-32600,
			"invalid request",
			"INVALID_REQUEST",
			false,
			"jsonrpc must be \"2.0\" and method must be non-empty",
		))
	}

	h, ok := s.handlers[req.Method]
	if !ok {
		s.logger.Warn("method not found", "method", req.Method)
		return types.NewErrorResponse(req.ID, types.NewRPCError(
			types.ErrMethodNotFound,
			"method not found",
			types.ErrTypeMethodNotFound,
			false,
			"unknown method: "+req.Method,
		))
	}

	requestID := logging.NewRequestID()
	ctx = logging.ContextWithRequestID(ctx, requestID)
	logger := s.logger.With("request_id", requestID, "method", req.Method, "id", req.ID)

	start := time.Now()
	result, rpcErr := h(ctx, s.session, req.Params)
	if rpcErr != nil {
		logger.Warn("request failed",
			"code", rpcErr.Code,
			"message", rpcErr.Message,
			"duration", time.Since(start),
		)
		return types.NewErrorResponse(req.ID, rpcErr)
	}
	logger.Debug("request served", "duration", time.Since(start))

	resp, err := types.NewSuccessResponse(req.ID, result)
	if err != nil {
		logger.Error("failed to marshal result", logging.ErrAttr(err))
		return types.NewErrorResponse(req.ID, types.NewRPCError(
			types.ErrEngineError,
			"failed to marshal result",
			types.ErrTypeEngineError,
			false,
			err.Error(),
		))
	}
	return resp
}

// writeResponse serializes a Response as compact JSON followed by a newline.
func (s *Server) writeResponse(resp *types.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", logging.ErrAttr(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
	_ = s.writer.WriteByte('\n')
	_ = s.writer.Flush()
}
