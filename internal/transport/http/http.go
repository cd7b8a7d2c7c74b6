// Package http implements the HTTP transport for soundofsilence.
//
// This transport exposes POST /generate, which renders a narration script
// and returns the encoded mix as a file attachment, plus GET /health and the
// Swagger UI. Requests must carry the configured key in the x-api-key header.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nadzzz/soundofsilence/internal/config"
	"github.com/nadzzz/soundofsilence/internal/message"
	"github.com/nadzzz/soundofsilence/internal/render"
	"github.com/nadzzz/soundofsilence/internal/script"
	"github.com/nadzzz/soundofsilence/internal/transport"
	"github.com/nadzzz/soundofsilence/internal/tts"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// APIKeyHeader carries the shared secret on every /generate request.
const APIKeyHeader = "x-api-key"

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port           int
	apiKey         string
	maxBodyBytes   int64
	requestTimeout time.Duration
	server         *http.Server
}

// New creates a new HTTP transport from its config section.
func New(cfg config.HTTPConfig) *Transport {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Transport{
		port:           cfg.Port,
		apiKey:         cfg.APIKey,
		maxBodyBytes:   maxBody,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes builds the request multiplexer around handler.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /generate: accepts a script, returns the rendered audio file.
	mux.HandleFunc("POST /generate", func(w http.ResponseWriter, r *http.Request) {
		t.handleGenerate(w, r, handler)
	})

	// GET /health: liveness for load balancers.
	mux.HandleFunc("GET /health", handleHealth)

	// Swagger UI: serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// generateBody is the JSON body accepted by POST /generate.
type generateBody struct {
	// Script is the narration text with inline [PAUSE:Ns] markers.
	Script string `json:"script" example:"Inhala profundo. [PAUSE:4s] Exhala lento. [PAUSE:6s] Buen trabajo."`

	// Voice optionally overrides the configured TTS voice.
	Voice string `json:"voice,omitempty"`

	// Format optionally overrides the output encoding ("opus" or "wav").
	Format string `json:"format,omitempty" example:"opus"`
}

// errorBody is returned with every non-2xx response.
type errorBody struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// handleGenerate processes a POST /generate request.
//
// @Summary     Render a narration
// @Description Parses the script, synthesizes every chunk, lays the speech out with the requested pauses,
// @Description mixes it over the background bed and returns the encoded file as an attachment.
// @Tags        generate
// @Accept      json
// @Produce     audio/opus
// @Produce     audio/wav
// @Param       x-api-key  header    string        true  "Shared API key"
// @Param       request    body      generateBody  true  "Script to render"
// @Success     200  {file}    binary     "Encoded mix (attachment)"
// @Failure     400  {object}  errorBody  "Invalid JSON or malformed script"
// @Failure     401  {object}  errorBody  "Missing or wrong API key"
// @Failure     413  {object}  errorBody  "Request body too large"
// @Failure     502  {object}  errorBody  "Text-to-speech provider failure"
// @Failure     500  {object}  errorBody  "Mixing or encoding failure"
// @Router      /generate [post]
func (t *Transport) handleGenerate(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	if !t.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var body generateBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, t.maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error(), "")
		return
	}

	req := &message.GenerateRequest{
		Script:     body.Script,
		Voice:      body.Voice,
		Format:     body.Format,
		ReceivedAt: time.Now(),
	}

	ctx := r.Context()
	if t.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.requestTimeout)
		defer cancel()
	}

	result, err := handler(ctx, req)
	if err != nil {
		status := statusFor(err)
		slog.Error("generate failed", "request_id", req.ID, "status", status, "error", err)
		writeError(w, status, detailFor(status, err), req.ID)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Audio)))
	w.Header().Set("X-Request-Id", result.RequestID)
	w.Header().Set("X-Audio-Duration", strconv.FormatFloat(result.Duration.Seconds(), 'f', 3, 64))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Audio); err != nil {
		slog.Warn("writing response failed", "request_id", result.RequestID, "error", err)
	}
}

// handleHealth reports liveness.
//
// @Summary     Health check
// @Tags        health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (t *Transport) authorized(r *http.Request) bool {
	if t.apiKey == "" {
		return false
	}
	got := r.Header.Get(APIKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(t.apiKey)) == 1
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		malformed *script.MalformedError
		synthErr  *tts.SynthesisError
	)
	switch {
	case errors.As(err, &malformed), errors.Is(err, render.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.As(err, &synthErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		// Mixing and encoding failures.
		return http.StatusInternalServerError
	}
}

// detailFor returns the client-facing error text. Client mistakes are echoed
// back; server-side failures can carry file paths and provider responses, so
// they get a fixed message and the request id for log lookup.
func detailFor(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusBadGateway:
		return "speech synthesis failed"
	case http.StatusGatewayTimeout:
		return "request timed out"
	default:
		return "internal error"
	}
}

func writeError(w http.ResponseWriter, status int, detail, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: detail, RequestID: requestID})
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
