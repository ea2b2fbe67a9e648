package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"cvstudio/internal/ai"
	"cvstudio/internal/conversation"
	"cvstudio/internal/ingest"
	"cvstudio/internal/merge"
	"cvstudio/internal/observability"
	"cvstudio/internal/reply"
	"cvstudio/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// createMessageHandler wraps one conversation turn with observability
func (s *Server) createMessageHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvstudio.api")
		ctx, span := tracer.Start(ctx, "api.session.message")
		defer span.End()

		userID := userIDFromContext(ctx)
		sess, err := s.sessions.Get(userID, r.PathValue("id"))
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "not_found"))
			writeAppError(w, err)
			return
		}

		var req MessageRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if len(req.Message) > int(s.MaxRequestSize) {
			err := fmt.Errorf("message too large: %d chars", len(req.Message))
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Message too large",
				fmt.Sprintf("message exceeds size limit of %d characters", s.MaxRequestSize), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("session.kind", string(sess.Kind)),
			attribute.Int("request.message_length", len(req.Message)),
			attribute.String("operation", "extract"),
		)

		controller := s.controller(sess.Kind)

		metrics := om.GetMetrics()
		var result *conversation.TurnResult
		err = metrics.TrackAIOperationWithTokens(ctx, "extract."+string(sess.Kind), func(ctx context.Context) *observability.AIOperationResult {
			turnResult, turnErr := controller.HandleMessage(ctx, sess, req.Message)
			result = turnResult
			var usage *observability.TokenUsage
			if turnResult != nil {
				usage = (*observability.TokenUsage)(turnResult.Usage)
			}
			return &observability.AIOperationResult{
				Error:      turnErr,
				TokenUsage: usage,
			}
		})

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, "extraction_turn", false,
				attribute.String("kind", string(sess.Kind)))
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "extraction_turn", true,
			attribute.String("kind", string(sess.Kind)),
			attribute.Int("questions_count", len(result.Questions)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.questions_count", len(result.Questions)),
			attribute.Int("response.missing_count", len(result.MissingInfo)),
		)

		writeJSONResponse(w, http.StatusOK, result)
	}
}

// createFilesHandler runs an uploaded file batch through extraction. The
// whole batch is validated before any model call; after that, a failed file
// does not cancel the files behind it.
func (s *Server) createFilesHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvstudio.api")
		ctx, span := tracer.Start(ctx, "api.session.files")
		defer span.End()

		userID := userIDFromContext(ctx)
		sess, err := s.sessions.Get(userID, r.PathValue("id"))
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		files, err := readMultipartFiles(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid upload", err.Error(), http.StatusBadRequest)
			return
		}

		inputs, err := ingest.ClassifyAll(files)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.String("session.id", sess.ID),
			attribute.Int("request.file_count", len(inputs)),
			attribute.String("operation", "extract_files"),
		)

		// Stash originals in blob storage when configured. Upload failures
		// are logged; extraction does not depend on the archive copy.
		if s.Blob != nil {
			for _, f := range files {
				contentType := ingest.DetectMIMEType(f.Name)
				if _, blobErr := s.Blob.Put(ctx, userID, "uploads", f.Name, contentType, f.Data); blobErr != nil {
					s.Logger.LogError(blobErr, "Upload archive failed",
						"session_id", sess.ID, "file", f.Name)
				}
			}
		}

		controller := s.controller(sess.Kind)
		results := controller.HandleFiles(ctx, sess, inputs)

		metrics := om.GetMetrics()
		response := make([]FileTurnResponse, 0, len(results))
		failures := 0
		for _, res := range results {
			entry := FileTurnResponse{Name: res.Name, Result: res.Result}
			if res.Err != nil {
				entry.Error = res.Err.Error()
				failures++
			}
			metrics.RecordBusinessMetric(ctx, "file_ingested", res.Err == nil,
				attribute.String("kind", string(sess.Kind)))
			response = append(response, entry)
		}

		span.SetAttributes(
			attribute.Bool("success", failures == 0),
			attribute.Int("response.failed_count", failures),
		)

		writeJSONResponse(w, http.StatusOK, response)
	}
}

// createGenerateHandler produces the final polished document text
func (s *Server) createGenerateHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvstudio.api")
		ctx, span := tracer.Start(ctx, "api.generate")
		defer span.End()

		var req types.GenerateInput
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if !req.Kind.Valid() {
			err := fmt.Errorf("invalid document kind: %q", req.Kind)
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid document kind",
				"kind must be 'resume' or 'coverLetter'", http.StatusBadRequest)
			return
		}

		builder := s.promptBuilder()
		generatePrompt, err := builder.BuildGenerate(req)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.String("kind", string(req.Kind)),
			attribute.String("operation", "generate"),
		)

		metrics := om.GetMetrics()
		var rawReply string
		err = metrics.TrackAIOperationWithTokens(ctx, "generate", func(ctx context.Context) *observability.AIOperationResult {
			text, tokenUsage, aiErr := s.generateService().Generate(ctx, ai.GenerateRequest{
				Prompt:       generatePrompt,
				SystemPrompt: builder.GenerateSystem(),
			})
			rawReply = text
			return &observability.AIOperationResult{
				Error:      aiErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		})

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ai_processing"))
			metrics.RecordBusinessMetric(ctx, "document_generated", false,
				attribute.String("kind", string(req.Kind)))
			writeAppError(w, err)
			return
		}

		// The polished sections come back in the extraction shape and are
		// merged over the input document, so nothing the user entered is lost.
		parsed, err := reply.Parse(rawReply)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "parse"))
			metrics.RecordBusinessMetric(ctx, "document_generated", false,
				attribute.String("kind", string(req.Kind)))
			writeAppError(w, err)
			return
		}
		polished := merge.Documents(req.Document, parsed.ExtractedFields)

		metrics.RecordBusinessMetric(ctx, "document_generated", true,
			attribute.String("kind", string(req.Kind)))
		s.Store.Track(ctx, userIDFromContext(ctx), "document_generated")

		span.SetAttributes(attribute.Bool("success", true))

		writeJSONResponse(w, http.StatusOK, GenerateResponse{
			Kind:     req.Kind,
			Document: polished,
		})
	}
}

// readMultipartFiles collects uploaded files preserving submission order.
// Parts are kept as ordered pairs so uploads sharing a filename both survive.
func readMultipartFiles(r *http.Request) ([]ingest.File, error) {
	if err := r.ParseMultipartForm(ingest.MaxFileSize); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	var files []ingest.File
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
			}
			data, err := readAllAndClose(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
			}
			files = append(files, ingest.File{Name: header.Filename, Data: data})
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files in upload")
	}
	return files, nil
}

func readAllAndClose(f multipart.File) ([]byte, error) {
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Check if this request was rate limited by examining the response
			// We'll wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
