package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/engine"
	"solana-tx-engine/internal/metrics"
	"solana-tx-engine/internal/observability"
)

const (
	requestLimit    = 1 << 20 // 1 MiB
	shutdownTimeout = 10 * time.Second
)

// Summarizer computes per-client summaries. *metrics.Aggregator implements it.
type Summarizer interface {
	Summarize(ctx context.Context, clientID string) (*domain.ClientSummary, error)
}

// HTTPServerOptions configures HTTPServer.
type HTTPServerOptions struct {
	Addr              string
	Processor         *Processor
	Summaries         Summarizer // optional
	RequestsPerMinute int
	Burst             int
	Logger            *zap.Logger
}

// HTTPServer is the HTTP front-end of the engine.
type HTTPServer struct {
	srv       *http.Server
	processor *Processor
	summaries Summarizer
	logger    *zap.Logger
}

type submitRequest struct {
	Transaction string `json:"transaction"`
}

type submitResponse struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Result    string `json:"result"` // signature when landed, otherwise the status
}

type tradeResponse struct {
	Signature string                     `json:"signature"`
	Status    engine.Status              `json:"status"`
	Reason    string                     `json:"reason,omitempty"`
	LatencyMs int64                      `json:"latency_ms"`
	Metrics   *domain.TransactionMetrics `json:"metrics,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NewHTTPServer creates the server. Call Start to serve.
func NewHTTPServer(opts HTTPServerOptions) *HTTPServer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HTTPServer{
		processor: opts.Processor,
		summaries: opts.Summaries,
		logger:    logger.Named("http"),
	}
	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(NewRateLimiter(opts.RequestsPerMinute, opts.Burst)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.srv.Handler
}

func (s *HTTPServer) routes(limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/transactions", s.submit)
		r.Post("/trades", s.trade)
	})

	if s.summaries != nil {
		r.Get("/clients/{clientID}/summary", s.summary)
	}
	return r
}

// Start serves until Stop. It blocks.
func (s *HTTPServer) Start() {
	s.logger.Info("transaction engine listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http server stopped", zap.Error(err))
	}
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}

func (s *HTTPServer) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req submitRequest
	if err := decodeBody(r, &req); err != nil || req.Transaction == "" {
		observability.RecordMessage("http", "invalid", time.Since(start).Seconds())
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid transaction object"})
		return
	}

	env, err := domain.DecodeEnvelopeBase64(req.Transaction)
	if err != nil {
		observability.RecordMessage("http", "invalid", time.Since(start).Seconds())
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid transaction object", Detail: err.Error()})
		return
	}

	out, err := s.processor.Submit(r.Context(), env)
	if err != nil {
		observability.RecordMessage("http", "error", time.Since(start).Seconds())
		s.logger.Error("error processing transaction", zap.String("signature", env.Signature), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to process transaction", Detail: err.Error()})
		return
	}
	observability.RecordMessage("http", string(out.Status), time.Since(start).Seconds())

	result := string(out.Status)
	if out.Landed() {
		result = out.Signature
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message:   "Transaction received successfully",
		Signature: env.Signature,
		Result:    result,
	})
}

func (s *HTTPServer) trade(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var msg Message
	if err := decodeBody(r, &msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid trade message", Detail: err.Error()})
		return
	}
	if err := msg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid trade message", Detail: err.Error()})
		return
	}

	res, err := s.processor.Process(r.Context(), &msg)
	if err != nil {
		observability.RecordMessage("http", "error", time.Since(start).Seconds())
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidEnvelope) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: "Failed to process transaction", Detail: err.Error()})
		return
	}
	observability.RecordMessage("http", string(res.Outcome.Status), time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, tradeResponse{
		Signature: res.Outcome.Signature,
		Status:    res.Outcome.Status,
		Reason:    res.Outcome.Reason,
		LatencyMs: res.Outcome.Latency.Milliseconds(),
		Metrics:   res.Metrics,
	})
}

func (s *HTTPServer) summary(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	sum, err := s.summaries.Summarize(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, metrics.ErrNoTrades) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("summarize client", zap.String("client", clientID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to summarize client"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, requestLimit))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
