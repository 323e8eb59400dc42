package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/decisiontable"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/expression"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/config"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/internal/logger"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/pipeline"
	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/rules"
)

type Server struct {
	engine   *rules.Engine
	executor *pipeline.Executor
	router   *chi.Mux
}

func NewServer(cfg *config.Config) (*Server, error) {
	engine, err := cfg.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s := &Server{
		engine:   engine,
		executor: pipeline.NewExecutor(engine),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/api/v1/health", s.handleHealth)

	// Expressions
	r.Route("/api/v1/expressions", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/decompile", s.handleDecompile)
	})

	// Decision tables
	r.Route("/api/v1/tables", func(r chi.Router) {
		r.Post("/compile", s.handleCompileTable)
		r.Post("/validate", s.handleValidateTable)
	})

	// Pipelines
	r.Route("/api/v1/pipelines", func(r chi.Router) {
		r.Post("/validate", s.handleValidatePipeline)
		r.Post("/execute", s.handleExecutePipeline)
	})

	// Evaluation
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs each request and counts error responses.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.HTTPStatus(status)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestId", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"cachedPrograms": s.engine.CacheSize(),
	})
}

// Parse handler
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	parse := expression.ParseExpression
	if req.Strict {
		parse = expression.ParseStrict
	}

	logic, err := parse(req.Expression)
	if err != nil {
		var syntaxErr *expression.SyntaxError
		if errors.As(err, &syntaxErr) {
			respondJSON(w, http.StatusBadRequest, SyntaxErrorResponse{
				Error:    "invalid expression",
				Details:  syntaxErr.Error(),
				Position: syntaxErr.Pos,
				Token:    syntaxErr.Token,
			})
			return
		}
		respondError(w, http.StatusBadRequest, "invalid expression", err)
		return
	}

	warnings := ir.Lint(logic)
	if warnings == nil {
		warnings = []string{}
	}
	respondJSON(w, http.StatusOK, ParseResponse{
		Logic:     logic,
		Variables: ir.Variables(logic),
		Warnings:  warnings,
	})
}

// Decompile handler
func (s *Server) handleDecompile(w http.ResponseWriter, r *http.Request) {
	var req DecompileRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Logic) == 0 {
		respondError(w, http.StatusBadRequest, "logic is required", nil)
		return
	}

	logic, err := ir.Decode(req.Logic)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid logic", err)
		return
	}

	respondJSON(w, http.StatusOK, DecompileResponse{Expression: expression.Decompile(logic)})
}

// Table compile handler. Structural problems reject the table; cell problems
// are returned alongside the compiled logic.
func (s *Server) handleCompileTable(w http.ResponseWriter, r *http.Request) {
	table, ok := decodeTable(w, r)
	if !ok {
		return
	}

	if problems := decisiontable.Validate(table); len(problems) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, TableValidationResponse{Valid: false, Errors: problems})
		return
	}

	respondJSON(w, http.StatusOK, CompileTableResponse{
		CompiledTable: decisiontable.Compile(table),
		Problems:      decisiontable.ValidateCells(table),
	})
}

// Table validation handler
func (s *Server) handleValidateTable(w http.ResponseWriter, r *http.Request) {
	table, ok := decodeTable(w, r)
	if !ok {
		return
	}

	problems := tableProblems(table)
	respondJSON(w, http.StatusOK, TableValidationResponse{Valid: len(problems) == 0, Errors: problems})
}

func decodeTable(w http.ResponseWriter, r *http.Request) (*decisiontable.Table, bool) {
	var req TableRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return nil, false
	}
	if req.Table == nil {
		respondError(w, http.StatusBadRequest, "table is required", nil)
		return nil, false
	}
	return req.Table, true
}

func tableProblems(t *decisiontable.Table) []string {
	problems := append([]string{}, decisiontable.Validate(t)...)
	return append(problems, decisiontable.ValidateCells(t)...)
}

// Pipeline validation handler
func (s *Server) handleValidatePipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelineRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Pipeline == nil {
		respondError(w, http.StatusBadRequest, "pipeline is required", nil)
		return
	}

	respondJSON(w, http.StatusOK, pipeline.Validate(req.Pipeline))
}

// Pipeline execution handler. A failing step is reported in the result with
// status 200; only pipelines that fail validation are rejected.
func (s *Server) handleExecutePipeline(w http.ResponseWriter, r *http.Request) {
	var req ExecutePipelineRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Pipeline == nil {
		respondError(w, http.StatusBadRequest, "pipeline is required", nil)
		return
	}

	if validation := pipeline.Validate(req.Pipeline); !validation.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, validation)
		return
	}

	executionID := uuid.NewString()
	startTime := time.Now()
	result := s.executor.Execute(req.Pipeline, req.Data)
	duration := time.Since(startTime)

	logger.Info("pipeline executed",
		"executionId", executionID,
		"pipeline", req.Pipeline.ID,
		"success", result.Success,
		"duration", duration)

	respondJSON(w, http.StatusOK, ExecutePipelineResponse{
		ExecutionID:     executionID,
		ExecutionResult: result,
		Duration:        duration.String(),
	})
}

// Evaluation handler
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Rules) == 0 {
		respondError(w, http.StatusBadRequest, "rules are required", nil)
		return
	}

	if req.Facts == nil {
		respondError(w, http.StatusBadRequest, "facts are required", nil)
		return
	}

	ruleSet := make([]*rules.Rule, 0, len(req.Rules))
	for i, rr := range req.Rules {
		rule, err := toRule(i, rr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid rule", err)
			return
		}
		ruleSet = append(ruleSet, rule)
	}

	startTime := time.Now()
	results := s.engine.EvaluateAll(ruleSet, req.Facts)
	evaluationTime := time.Since(startTime)

	response := EvaluateResponse{
		Results:        make([]EvaluationResultResponse, 0, len(results)),
		EvaluationTime: evaluationTime.String(),
	}
	for _, res := range results {
		out := EvaluationResultResponse{
			RuleID:   res.RuleID,
			RuleName: res.RuleName,
			Matched:  res.Matched,
			Value:    res.Value,
		}
		if res.Error != nil {
			out.Error = res.Error.Error()
		}
		response.Results = append(response.Results, out)
	}

	respondJSON(w, http.StatusOK, response)
}

// toRule builds a rule from either its logic tree or its expression text.
// Rules without an id are numbered by position.
func toRule(i int, rr RuleRequest) (*rules.Rule, error) {
	rule := &rules.Rule{
		ID:     rr.ID,
		Name:   rr.Name,
		Active: rr.Active == nil || *rr.Active,
	}
	if rule.ID == "" {
		rule.ID = fmt.Sprintf("rule-%d", i+1)
	}

	switch {
	case len(rr.Logic) > 0:
		logic, err := ir.Decode(rr.Logic)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		rule.Logic = logic
	case rr.Expression != "":
		logic, err := expression.ParseStrict(rr.Expression)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		rule.Logic = logic
	default:
		return nil, fmt.Errorf("rule %s: logic or expression is required", rule.ID)
	}
	return rule, nil
}

// Helper functions
func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	logger.SetLevel(cfg.LogLevel)

	// Create server
	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server", "timeout", cfg.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped",
		"errors", logger.TotalErrors.Load(),
		"stepFailures", logger.StepFailures.Load())
}
