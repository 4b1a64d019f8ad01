package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/reqanalyzer/internal/application"
	"github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
	"github.com/bryanwahyu/reqanalyzer/internal/domain/faults"
	"github.com/bryanwahyu/reqanalyzer/internal/domain/rag"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/ai/prompt"
)

// Backend ids the orchestrator asks the health monitor for.
const (
	BackendRAG    = "rag"
	BackendDirect = "direct"
)

const previewLen = 120

// GeneratorSource yields a usable generator per backend id; the health
// monitor implements it. It never fails.
type GeneratorSource interface {
	ActiveGenerator(ctx context.Context, backendID string) ai.Generator
	ReportFailure(backendID string, err error)
}

// Service implements the analysis use-case: cache check, workspace
// configuration, dispatch, validation, repair, fallback, parse, cache write.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Cache   domain.ResultCache
	Tracker rag.Tracker
	Health  GeneratorSource
	Repo    domain.Repository // optional audit trail, may be nil
	Faults  faults.Repository // optional failure log, may be nil
	Clock   application.Clock

	WorkspaceID     string
	GenOpts         ai.GenerateOptions
	GenerateTimeout time.Duration
	// FallbackCeiling is the hard upper bound on the slow direct path.
	FallbackCeiling time.Duration

	inflight inflightSet
}

// Analyze runs the full pipeline for one requirement. It always returns
// either a result or a typed *analysis.Error; no raw backend error crosses
// this boundary. A cancelled request never writes to the cache.
func (s *Service) Analyze(ctx context.Context, tenant string, rc domain.RequirementContext, progress domain.ProgressFunc) (*domain.Result, error) {
	report := func(stage domain.Stage, detail string) {
		if progress != nil {
			progress(stage, detail)
		}
	}
	report(domain.StageQueued, rc.ID)

	// Empty input short-circuits before any network call.
	if strings.TrimSpace(rc.Text) == "" {
		return nil, domain.NewError(domain.ErrKindValidation, "requirement text is empty", "")
	}

	fp := domain.Fingerprint(rc)
	report(domain.StageCacheCheck, fp)
	if res, ok := s.Cache.TryGet(fp); ok {
		report(domain.StageDone, "cache hit")
		return res, nil
	}

	// One analysis per fingerprint at a time; followers wait and then
	// re-check the cache instead of repeating dispatch and repair.
	release, leader := s.inflight.acquire(ctx, fp)
	for !leader {
		if ctx.Err() != nil {
			return nil, cancelError(ctx)
		}
		if res, ok := s.Cache.TryGet(fp); ok {
			report(domain.StageDone, "cache hit")
			return res, nil
		}
		// Leader failed; contend to run our own attempt.
		release, leader = s.inflight.acquire(ctx, fp)
	}
	defer release()

	res, err := s.analyzeMiss(ctx, tenant, rc, fp, report)
	if err != nil {
		return nil, err
	}
	report(domain.StageDone, "")
	return res, nil
}

func (s *Service) analyzeMiss(ctx context.Context, tenant string, rc domain.RequirementContext, fp string, report domain.ProgressFunc) (*domain.Result, error) {
	// Workspace configuration is best-effort: an unverifiable workspace
	// must not block the analysis.
	if ok := s.Tracker.EnsureConfigured(ctx, s.WorkspaceID, false); !ok {
		log.Printf("analysis: workspace %s not verified, proceeding", s.WorkspaceID)
	}
	if ctx.Err() != nil {
		return nil, cancelError(ctx)
	}

	gen := s.Health.ActiveGenerator(ctx, BackendRAG)
	userPrompt := prompt.GetUserPrompt(rc)

	report(domain.StageDispatch, gen.ID())
	report(domain.StageAwaitingResponse, gen.ID())
	raw, genErr := s.generate(ctx, gen, userPrompt, s.GenerateTimeout, false)
	if ctx.Err() != nil {
		return nil, cancelError(ctx)
	}

	if genErr == nil {
		res, parseErr := domain.ParseResult(raw)
		if parseErr == nil {
			return s.finish(ctx, tenant, rc, fp, res)
		}

		// One targeted repair pass before giving up on the primary path.
		report(domain.StageRepairing, parseErr.Error())
		repaired, repErr := s.generate(ctx, gen, prompt.GetRepairPrompt(raw, parseErr), s.GenerateTimeout, true)
		if ctx.Err() != nil {
			return nil, cancelError(ctx)
		}
		if repErr == nil {
			if res, parseErr = domain.ParseResult(repaired); parseErr == nil {
				return s.finish(ctx, tenant, rc, fp, res)
			}
			raw = repaired
		}
		s.recordFault(tenant, rc, fp, "repair", domain.ErrKindMalformedResponse, parseErr.Error(), raw)
	} else {
		s.Health.ReportFailure(BackendRAG, genErr)
		s.recordFault(tenant, rc, fp, "dispatch", kindOf(genErr), genErr.Error(), "")
	}

	// Fallback: direct, non-RAG generation under a hard ceiling. This path
	// may take minutes but must never hang.
	report(domain.StageFallback, BackendDirect)
	fbGen := s.Health.ActiveGenerator(ctx, BackendDirect)
	fbRaw, fbErr := s.generate(ctx, fbGen, userPrompt, s.FallbackCeiling, false)
	if ctx.Err() != nil {
		return nil, cancelError(ctx)
	}
	if fbErr != nil {
		s.Health.ReportFailure(BackendDirect, fbErr)
		s.recordFault(tenant, rc, fp, "fallback", kindOf(fbErr), fbErr.Error(), "")
		return nil, domain.NewError(kindOf(fbErr), fmt.Sprintf("fallback generation failed: %v", fbErr), "")
	}
	res, parseErr := domain.ParseResult(fbRaw)
	if parseErr != nil {
		s.recordFault(tenant, rc, fp, "fallback", domain.ErrKindMalformedResponse, parseErr.Error(), fbRaw)
		return nil, domain.NewError(domain.ErrKindMalformedResponse,
			fmt.Sprintf("fallback response failed validation: %v", parseErr), fbRaw)
	}
	return s.finish(ctx, tenant, rc, fp, res)
}

// generate runs one bounded generation call and tracks it on the workspace
// request log.
func (s *Service) generate(ctx context.Context, gen ai.Generator, userPrompt string, timeout time.Duration, repair bool) (string, error) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := s.GenOpts
	opts.RepairPass = repair

	start := s.now()
	raw, err := gen.Generate(genCtx, userPrompt, opts)
	durMS := s.now().Sub(start).Milliseconds()

	respPreview := domain.Preview(raw, previewLen)
	if err != nil {
		respPreview = domain.Preview(err.Error(), previewLen)
	}
	s.Tracker.TrackRequest(s.WorkspaceID, domain.Preview(userPrompt, previewLen), respPreview, err == nil, durMS)

	if err != nil && genCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return "", domain.NewError(domain.ErrKindTimeout, fmt.Sprintf("backend %s exceeded %s", gen.ID(), timeout), "")
	}
	return raw, err
}

// finish caches, persists, and returns a validated result. Runs only on the
// non-cancelled success path.
func (s *Service) finish(ctx context.Context, tenant string, rc domain.RequirementContext, fp string, res *domain.Result) (*domain.Result, error) {
	if ctx.Err() != nil {
		return nil, cancelError(ctx)
	}
	s.Cache.Store(fp, res)
	if s.Repo != nil {
		rec := &domain.Record{
			ID:            domain.AnalysisID(uuid.New().String()),
			TenantID:      tenant,
			RequirementID: rc.ID,
			Fingerprint:   fp,
			ResultJSON:    marshalResult(res),
			CreatedAt:     s.now(),
		}
		if err := s.Repo.Save(ctx, rec); err != nil {
			// Audit persistence is best-effort, the result still stands.
			log.Printf("analysis: save record for %s: %v", rc.ID, err)
		}
	}
	return res, nil
}

func (s *Service) recordFault(tenant string, rc domain.RequirementContext, fp, stage string, kind domain.ErrorKind, msg, raw string) {
	if s.Faults == nil {
		return
	}
	f := &faults.Fault{
		TenantID:      tenant,
		RequirementID: rc.ID,
		Fingerprint:   fp,
		Stage:         stage,
		Kind:          string(kind),
		Message:       msg,
		RawPreview:    domain.Preview(raw, 200),
		CreatedAt:     s.now(),
	}
	// Detached context: fault logging must survive request cancellation.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Faults.Save(saveCtx, f); err != nil {
		log.Printf("analysis: save fault for %s: %v", rc.ID, err)
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func kindOf(err error) domain.ErrorKind {
	if domain.IsKind(err, domain.ErrKindTimeout) {
		return domain.ErrKindTimeout
	}
	return domain.ErrKindBackendUnavailable
}

func cancelError(ctx context.Context) error {
	return domain.NewError(domain.ErrKindTimeout, fmt.Sprintf("request aborted: %v", ctx.Err()), "")
}

func marshalResult(res *domain.Result) string {
	b, err := json.Marshal(res)
	if err != nil {
		return "{}"
	}
	return string(b)
}
