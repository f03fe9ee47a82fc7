package analyses

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobjeeves/internal/extract"
	"jobjeeves/internal/llm"
	"jobjeeves/internal/shared/metrics"
	"jobjeeves/internal/shared/storage/object"
	"jobjeeves/internal/shared/telemetry"
	"jobjeeves/internal/shared/util"
)

// allowedMediaTypes is a coarse filter on the declared type; parse failure is
// the authoritative rejection for malformed bytes.
var allowedMediaTypes = map[string]struct{}{
	extract.MimePDF:         {},
	extract.MimeXPDF:        {},
	extract.MimeOctetStream: {},
	extract.MimeDOCX:        {},
}

// ExtractFunc turns document bytes into plain text.
type ExtractFunc func(ctx context.Context, data []byte, mediaType, fileName string) (string, error)

// Service runs the analysis pipeline: extract, analyze, persist, respond.
type Service struct {
	Repo    Repo
	LLM     llm.Client
	Extract ExtractFunc
	// Store archives raw uploads when set. Archive failures never fail a request.
	Store object.ObjectStore
}

// NewService constructs a Service using the default extractor.
func NewService(repo Repo, client llm.Client, store object.ObjectStore) *Service {
	return &Service{Repo: repo, LLM: client, Extract: extract.Text, Store: store}
}

// Analyze validates the submission, scores it and persists the record.
func (s *Service) Analyze(ctx context.Context, sub Submission) (Response, error) {
	start := time.Now()
	metrics.IncAnalysisStarted()

	resp, err := s.analyze(ctx, sub)
	elapsed := time.Since(start)
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	if err != nil {
		kind := failureKind(err)
		metrics.IncAnalysisFailed(kind)
		telemetry.Warn("analysis.failed", map[string]any{
			"kind":        kind,
			"error":       err.Error(),
			"duration_ms": elapsed.Milliseconds(),
		})
		return Response{}, err
	}

	metrics.IncAnalysisCompleted()
	telemetry.Info("analysis.completed", map[string]any{
		"analysis_id": resp.AnalysisID.String(),
		"match_score": resp.MatchScore,
		"duration_ms": elapsed.Milliseconds(),
	})
	return resp, nil
}

func (s *Service) analyze(ctx context.Context, sub Submission) (Response, error) {
	mediaType := extract.NormalizeMediaType(sub.MediaType)
	if _, ok := allowedMediaTypes[mediaType]; !ok {
		return Response{}, inputError(MsgUnsupportedType, extract.ErrUnsupportedType)
	}
	if strings.TrimSpace(sub.JobDescription) == "" {
		return Response{}, inputError(MsgJobDescriptionReq, nil)
	}

	// The record keeps the client's name; only the archive key is sanitized.
	filename := sub.FileName
	if strings.TrimSpace(filename) == "" {
		filename = defaultResumeFilename
	}
	safeName := util.FileNameOrDefault(sub.FileName, defaultResumeFilename)
	text, err := s.extractText(ctx, sub.Data, mediaType, safeName)
	if err != nil {
		if errors.Is(err, extract.ErrDocumentParse) || errors.Is(err, extract.ErrUnsupportedType) {
			return Response{}, inputError(MsgDocumentParse, err)
		}
		return Response{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Response{}, inputError(MsgNoExtractableText, nil)
	}

	result, err := s.LLM.AnalyzeResume(ctx, llm.AnalyzeInput{
		ResumeText:     text,
		JobDescription: sub.JobDescription,
	})
	if err != nil {
		return Response{}, err
	}

	score := result.MatchScore
	record, err := s.Repo.Create(ctx, Analysis{
		ResumeFilename: filename,
		ResumeText:     text,
		JobDescription: sub.JobDescription,
		MatchScore:     &score,
		Result:         result.Map(),
	})
	if err != nil {
		return Response{}, &persistError{err: err}
	}

	s.archive(ctx, record.ID, safeName, mediaType, sub.Data)

	return Response{
		AnalysisID:             record.ID,
		MatchScore:             score,
		MissingKeywords:        orEmpty(result.MissingKeywords),
		ImprovementSuggestions: orEmpty(result.ImprovementSuggestions),
		Strengths:              orEmpty(result.Strengths),
		ShortSummary:           result.ShortSummary,
		Raw:                    record.Result,
	}, nil
}

// Get returns a stored analysis.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Analysis, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) extractText(ctx context.Context, data []byte, mediaType, filename string) (string, error) {
	fn := s.Extract
	if fn == nil {
		fn = extract.Text
	}
	return fn(ctx, data, mediaType, filename)
}

func (s *Service) archive(ctx context.Context, id uuid.UUID, filename, mediaType string, data []byte) {
	if s.Store == nil {
		return
	}
	key := "analyses/" + id.String() + "/" + filename
	if _, err := s.Store.Put(ctx, key, mediaType, bytes.NewReader(data)); err != nil {
		metrics.IncArchiveFailed()
		telemetry.Warn("analysis.archive_failed", map[string]any{
			"analysis_id": id.String(),
			"key":         key,
			"error":       err.Error(),
		})
	}
}

type persistError struct {
	err error
}

func (e *persistError) Error() string { return "persist analysis: " + e.err.Error() }
func (e *persistError) Unwrap() error { return e.err }

func failureKind(err error) string {
	var inErr *InputError
	var pErr *persistError
	switch {
	case errors.As(err, &inErr):
		return "validation"
	case errors.As(err, &pErr):
		return "storage"
	default:
		return llm.KindOf(err)
	}
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
