// Package server exposes retrieval, answering and indexing over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/logging"
	"github.com/xhad/paperchat/pkg/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	TypeQuery    = "query"
	TypeIndex    = "index"
	TypeResults  = "results"
	TypeResponse = "response"
	TypeStream   = "stream"
	TypeError    = "error"
	TypeProgress = "progress"
	TypeStatus   = "status"
)

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	TopK    int         `json:"top_k,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.QueryResult, error)
}

type Responder interface {
	GenerateResponse(ctx context.Context, query string, results []models.QueryResult) (string, error)
	ChatStream(ctx context.Context, query string, results []models.QueryResult) (<-chan string, error)
}

// IndexFunc runs a batch index, reporting each finished document.
type IndexFunc func(ctx context.Context, onProgress func(pipeline.Outcome)) *pipeline.BatchReport

type Config struct {
	Retriever Retriever
	// Responder is optional; without it queries only return results.
	Responder Responder
	// Index is optional; without it index requests are rejected.
	Index     IndexFunc
	Streaming bool
	Logger    *zap.Logger
}

type WSServer struct {
	config   Config
	logger   *zap.Logger
	indexing sync.Mutex
}

func NewWSServer(config Config) (*WSServer, error) {
	if config.Retriever == nil {
		return nil, fmt.Errorf("server: retriever is required")
	}
	return &WSServer{config: config, logger: logging.OrNop(config.Logger)}, nil
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *WSServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting websocket server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down websocket server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("error reading message", zap.Error(err))
			}
			cancel()
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendMessage(c, Message{Type: TypeError, Content: "invalid message"})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, msg)
		}()
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *conn, msg Message) {
	switch msg.Type {
	case TypeQuery, "":
		s.handleQuery(ctx, c, msg)
	case TypeIndex:
		s.handleIndex(ctx, c)
	default:
		s.sendMessage(c, Message{Type: TypeError, Content: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func (s *WSServer) handleQuery(ctx context.Context, c *conn, msg Message) {
	query := strings.TrimSpace(msg.Content)
	if msg.TopK < 0 {
		s.sendMessage(c, Message{Type: TypeError, Content: "top_k must not be negative"})
		return
	}

	results, err := s.config.Retriever.Retrieve(ctx, query, msg.TopK)
	if err != nil {
		s.sendMessage(c, Message{Type: TypeError, Content: fmt.Sprintf("Error querying documents: %v", err)})
		return
	}
	s.sendMessage(c, Message{Type: TypeResults, Data: results})

	if s.config.Responder == nil {
		return
	}

	if !s.config.Streaming {
		response, err := s.config.Responder.GenerateResponse(ctx, query, results)
		if err != nil {
			s.sendMessage(c, Message{Type: TypeError, Content: fmt.Sprintf("Error: %v", err)})
			return
		}
		s.sendMessage(c, Message{Type: TypeResponse, Content: response})
		return
	}

	stream, err := s.config.Responder.ChatStream(ctx, query, results)
	if err != nil {
		s.sendMessage(c, Message{Type: TypeError, Content: fmt.Sprintf("Error: %v", err)})
		return
	}
	var full strings.Builder
	for chunk := range stream {
		if strings.HasPrefix(chunk, "Error:") {
			s.sendMessage(c, Message{Type: TypeError, Content: chunk})
			for range stream {
			}
			return
		}
		full.WriteString(chunk)
		s.sendMessage(c, Message{Type: TypeStream, Content: chunk})
	}
	s.sendMessage(c, Message{Type: TypeResponse, Content: full.String()})
}

type statusData struct {
	RunID     string `json:"run_id"`
	Documents int    `json:"documents"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

type progressData struct {
	pipeline.Outcome
	Error string `json:"error,omitempty"`
}

func (s *WSServer) handleIndex(ctx context.Context, c *conn) {
	if s.config.Index == nil {
		s.sendMessage(c, Message{Type: TypeError, Content: "indexing is not enabled"})
		return
	}
	if !s.indexing.TryLock() {
		s.sendMessage(c, Message{Type: TypeError, Content: "an index run is already in progress"})
		return
	}
	defer s.indexing.Unlock()

	report := s.config.Index(ctx, func(out pipeline.Outcome) {
		data := progressData{Outcome: out}
		if out.Err != nil {
			data.Error = out.Err.Error()
		}
		s.sendMessage(c, Message{Type: TypeProgress, Content: out.Message(), Data: data})
	})

	status := statusData{
		RunID:     report.RunID.String(),
		Documents: len(report.Outcomes),
		Succeeded: report.Succeeded(),
		Skipped:   report.Skipped(),
		Failed:    report.Failed(),
	}
	if report.Err != nil {
		status.Error = report.Err.Error()
	}
	s.sendMessage(c, Message{Type: TypeStatus, Content: report.Message(), Data: status})
}

func (s *WSServer) sendMessage(c *conn, msg Message) {
	if err := c.send(msg); err != nil {
		s.logger.Debug("error sending message", zap.String("type", msg.Type), zap.Error(err))
	}
}
