package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/internal/advisor"
	"github.com/personamatch/engine/internal/cache"
	"github.com/personamatch/engine/internal/compat"
	"github.com/personamatch/engine/internal/logging"
	"github.com/personamatch/engine/internal/personality"
	"github.com/personamatch/engine/internal/similarity"
	"github.com/personamatch/engine/pkg/types"
)

const (
	EngineVersion   = "0.4.0"
	protocolVersion = 1

	defaultHistoryWindow = 20
)

// Deps are the optional collaborators of the built-in handlers. A nil store
// or advisor disables the methods that need it.
type Deps struct {
	Profiles        *cache.ProfileStore
	History         *cache.HistoryStore
	Advisor         *advisor.Generator
	ReportCacheSize int
}

// RegisterBuiltinHandlers registers the built-in JSON-RPC handlers on s.
func RegisterBuiltinHandlers(s *Server, deps Deps) error {
	validator, err := newParamValidator()
	if err != nil {
		return err
	}

	var reports *lru.Cache[string, *compat.Report]
	if deps.ReportCacheSize > 0 {
		reports, err = lru.New[string, *compat.Report](deps.ReportCacheSize)
		if err != nil {
			return goerr.Wrap(err, "create report cache", goerr.V("size", deps.ReportCacheSize))
		}
	}

	h := &handlers{
		deps:      deps,
		validator: validator,
		reports:   reports,
		logger:    s.logger,
	}

	caps := []string{"matching", "compatibility"}
	if deps.Profiles != nil {
		caps = append(caps, "profiles")
	}
	if deps.History != nil {
		caps = append(caps, "history")
	}
	if deps.Advisor != nil {
		caps = append(caps, "advice")
	}

	s.RegisterHandler("initialize", handleInitialize(caps, s.maxConcurrent))
	s.RegisterHandler("shutdown", handleShutdown)
	s.RegisterHandler("matching_score", h.matchingScore)
	s.RegisterHandler("rank_candidates", h.rankCandidates)
	s.RegisterHandler("analyze_compatibility", h.analyzeCompatibility)
	s.RegisterHandler("put_profile", h.putProfile)
	s.RegisterHandler("get_profile", h.getProfile)
	s.RegisterHandler("match_history", h.matchHistory)
	if deps.Advisor != nil {
		s.RegisterHandler("generate_advice", h.generateAdvice)
	}
	return nil
}

type handlers struct {
	deps      Deps
	validator *paramValidator
	reports   *lru.Cache[string, *compat.Report]
	logger    *slog.Logger
}

func handleInitialize(caps []string, maxConcurrent int) Handler {
	return func(_ context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
		if session.State() != StateUninitialized {
			return nil, types.NewRPCError(
				types.ErrSessionError,
				"initialize called on already-initialized session",
				types.ErrTypeSessionError,
				false,
				"initialize may only be called once per session",
			)
		}

		var p types.InitializeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, types.NewRPCError(
				types.ErrSessionError,
				"invalid initialize params",
				types.ErrTypeSessionError,
				false,
				err.Error(),
			)
		}

		if p.ProtocolVersion != protocolVersion {
			return nil, types.NewRPCError(
				types.ErrSessionError,
				fmt.Sprintf("protocol version %d not supported; engine supports version %d", p.ProtocolVersion, protocolVersion),
				types.ErrTypeSessionError,
				false,
				"Upgrade the engine binary or downgrade the client protocol_version",
			)
		}

		locale := p.Locale
		switch locale {
		case "":
			locale = personality.LocaleEN
		case personality.LocaleEN, personality.LocaleKO:
		default:
			return nil, types.NewRPCError(
				types.ErrSessionError,
				fmt.Sprintf("unsupported locale %q", p.Locale),
				types.ErrTypeSessionError,
				false,
				"supported locales: en, ko",
			)
		}

		supported := make(map[string]bool, len(caps))
		for _, c := range caps {
			supported[c] = true
		}

		missing := []string{}
		for _, req := range p.RequiredCapabilities {
			if !supported[req] {
				missing = append(missing, req)
			}
		}

		session.SetLocale(locale)
		session.SetState(StateInitialized)

		return &types.InitializeResult{
			EngineVersion:         EngineVersion,
			ProtocolVersion:       protocolVersion,
			Capabilities:          caps,
			Missing:               missing,
			Compatible:            len(missing) == 0,
			MaxConcurrentRequests: maxConcurrent,
		}, nil
	}
}

func handleShutdown(_ context.Context, session *Session, _ json.RawMessage) (any, *types.RPCError) {
	if session.State() != StateInitialized {
		return nil, types.NewRPCError(
			types.ErrSessionError,
			"shutdown called on uninitialized or already-shutting-down session",
			types.ErrTypeSessionError,
			false,
			"call initialize before shutdown",
		)
	}

	completed, served := session.complete()
	return &types.ShutdownResult{
		SessionsCompleted: int(completed),
		RequestsServed:    int(served),
	}, nil
}

func requireInitialized(session *Session, method string) *types.RPCError {
	if session.State() == StateInitialized {
		return nil
	}
	return types.NewRPCError(
		types.ErrSessionError,
		method+" called before initialize",
		types.ErrTypeSessionError,
		false,
		"call initialize first to establish a session",
	)
}

func notConfigured(what string) *types.RPCError {
	return types.NewRPCError(
		types.ErrEngineError,
		what+" is not configured",
		types.ErrTypeEngineError,
		false,
		"set store.path in the engine configuration",
	)
}

func engineError(message string, err error) *types.RPCError {
	return types.NewRPCError(types.ErrEngineError, message, types.ErrTypeEngineError, true, err.Error())
}

func profileNotFound(userID string) *types.RPCError {
	return types.NewRPCError(
		types.ErrNotFound,
		"profile not found",
		types.ErrTypeNotFound,
		false,
		"no profile stored for user "+userID,
	)
}

func (h *handlers) matchingScore(ctx context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "matching_score"); rpcErr != nil {
		return nil, rpcErr
	}
	var p types.MatchingScoreParams
	if rpcErr := h.validator.decode("matching_score", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	var opts []similarity.Option
	if p.UseWeights != nil {
		opts = append(opts, similarity.WithWeights(*p.UseWeights))
	}
	if p.RemoveBias != nil {
		opts = append(opts, similarity.WithBiasRemoval(*p.RemoveBias))
	}

	score, err := similarity.CalculateMatchingScore(personality.ParseVector(p.UserA), personality.ParseVector(p.UserB), opts...)
	if err != nil {
		return nil, types.NewRPCError(
			types.ErrInvalidVector,
			"cannot score vectors",
			types.ErrTypeInvalidVector,
			false,
			fmt.Sprintf("%v: user_a has %d traits, user_b has %d", err, len(p.UserA), len(p.UserB)),
		)
	}

	if p.UserAID != "" && p.UserBID != "" {
		h.recordPair(ctx, p.UserAID, p.UserBID, cache.KindMatchingScore, float64(score))
	}

	session.IncrementRequests()
	return &types.MatchingScoreResult{Score: score, Grade: similarity.GetMatchingGrade(score)}, nil
}

func (h *handlers) rankCandidates(ctx context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "rank_candidates"); rpcErr != nil {
		return nil, rpcErr
	}
	var p types.RankCandidatesParams
	if rpcErr := h.validator.decode("rank_candidates", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	var (
		current    personality.Vector
		candidates []similarity.Candidate
	)
	if p.CurrentID != "" {
		if h.deps.Profiles == nil {
			return nil, notConfigured("profile store")
		}
		prof, err := h.deps.Profiles.Get(p.CurrentID)
		if errors.Is(err, cache.ErrProfileNotFound) {
			return nil, profileNotFound(p.CurrentID)
		}
		if err != nil {
			return nil, engineError("failed to load profile", err)
		}
		others, err := h.deps.Profiles.List(p.CurrentID)
		if err != nil {
			return nil, engineError("failed to list profiles", err)
		}
		current = prof.Vector
		candidates = make([]similarity.Candidate, 0, len(others))
		for _, o := range others {
			candidates = append(candidates, similarity.Candidate{ID: o.UserID, Data: o.Vector})
		}
	} else {
		current = personality.ParseVector(p.Current)
		candidates = make([]similarity.Candidate, 0, len(p.Candidates))
		for _, c := range p.Candidates {
			candidates = append(candidates, similarity.Candidate{ID: c.ID, Data: personality.ParseVector(c.Data)})
		}
	}

	ranked := similarity.SortUsersByMatchingScore(candidates, current)
	out := make([]types.CandidateRecord, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, types.CandidateRecord{ID: c.ID, Data: c.Data.Records(), Similarity: c.Similarity})
		if p.CurrentID != "" {
			h.record(ctx, p.CurrentID, c.ID, cache.KindMatchingScore, float64(c.Similarity))
		}
	}

	session.IncrementRequests()
	return &types.RankCandidatesResult{Candidates: out}, nil
}

func (h *handlers) analyzeCompatibility(ctx context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "analyze_compatibility"); rpcErr != nil {
		return nil, rpcErr
	}
	var p types.AnalyzeCompatibilityParams
	if rpcErr := h.validator.decode("analyze_compatibility", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	locale := p.Locale
	if locale == "" {
		locale = session.Locale()
	}
	report := h.analyze(personality.ParseVector(p.UserA), personality.ParseVector(p.UserB), locale)

	if report != nil && p.UserAID != "" && p.UserBID != "" {
		h.recordPair(ctx, p.UserAID, p.UserBID, cache.KindCompatibility, float64(report.OverallScore))
	}

	session.IncrementRequests()
	return &types.AnalyzeCompatibilityResult{Report: report}, nil
}

// analyze memoizes compat reports by locale and trait content. Cached
// reports are shared and must not be mutated.
func (h *handlers) analyze(a, b personality.Vector, locale string) *compat.Report {
	if h.reports == nil {
		return compat.AnalyzeCompatibilityLocale(a, b, locale)
	}
	key := reportKey(a, b, locale)
	if r, ok := h.reports.Get(key); ok {
		return r
	}
	r := compat.AnalyzeCompatibilityLocale(a, b, locale)
	h.reports.Add(key, r)
	return r
}

func reportKey(a, b personality.Vector, locale string) string {
	var sb strings.Builder
	sb.WriteString(locale)
	for _, v := range []personality.Vector{a, b} {
		sb.WriteByte('|')
		for _, t := range v {
			sb.WriteString(t.Label)
			sb.WriteByte('=')
			sb.WriteString(strconv.FormatFloat(t.Score, 'g', -1, 64))
			sb.WriteByte(';')
		}
	}
	return sb.String()
}

func (h *handlers) putProfile(_ context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "put_profile"); rpcErr != nil {
		return nil, rpcErr
	}
	if h.deps.Profiles == nil {
		return nil, notConfigured("profile store")
	}
	var p types.PutProfileParams
	if rpcErr := h.validator.decode("put_profile", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.deps.Profiles.Put(p.UserID, personality.ParseVector(p.Data)); err != nil {
		return nil, engineError("failed to store profile", err)
	}

	session.IncrementRequests()
	return &types.PutProfileResult{Stored: true}, nil
}

func (h *handlers) getProfile(_ context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "get_profile"); rpcErr != nil {
		return nil, rpcErr
	}
	if h.deps.Profiles == nil {
		return nil, notConfigured("profile store")
	}
	var p types.GetProfileParams
	if rpcErr := h.validator.decode("get_profile", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	prof, err := h.deps.Profiles.Get(p.UserID)
	if errors.Is(err, cache.ErrProfileNotFound) {
		return nil, profileNotFound(p.UserID)
	}
	if err != nil {
		return nil, engineError("failed to load profile", err)
	}

	session.IncrementRequests()
	return &types.GetProfileResult{
		UserID:    prof.UserID,
		Data:      prof.Vector.Records(),
		UpdatedAt: prof.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h *handlers) matchHistory(_ context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "match_history"); rpcErr != nil {
		return nil, rpcErr
	}
	if h.deps.History == nil {
		return nil, notConfigured("match history store")
	}
	var p types.MatchHistoryParams
	if rpcErr := h.validator.decode("match_history", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	window := p.Window
	if window == 0 {
		window = defaultHistoryWindow
	}
	scores, err := h.deps.History.QueryWindow(p.UserID, window)
	if err != nil {
		return nil, engineError("failed to query match history", err)
	}
	mean, stddev, count := cache.Stats(scores)

	session.IncrementRequests()
	return &types.MatchHistoryResult{Scores: scores, Mean: mean, StdDev: stddev, Count: count}, nil
}

func (h *handlers) generateAdvice(ctx context.Context, session *Session, params json.RawMessage) (any, *types.RPCError) {
	if rpcErr := requireInitialized(session, "generate_advice"); rpcErr != nil {
		return nil, rpcErr
	}
	var p types.GenerateAdviceParams
	if rpcErr := h.validator.decode("generate_advice", params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	locale := session.Locale()
	report := h.analyze(personality.ParseVector(p.UserA), personality.ParseVector(p.UserB), locale)

	req := advisor.Request{Language: p.Language}
	if p.Names != nil {
		req.NameA, req.NameB = p.Names.A, p.Names.B
	}
	if req.Language == "" && locale == personality.LocaleKO {
		req.Language = "Korean"
	}

	adv, err := h.deps.Advisor.Generate(ctx, report, req)
	if err != nil {
		h.logger.Warn("advice generation failed",
			"request_id", logging.RequestIDFromContext(ctx),
			logging.ErrAttr(err),
		)
		return nil, types.NewRPCError(
			types.ErrProviderError,
			"advice generation failed",
			types.ErrTypeProviderError,
			true,
			err.Error(),
		)
	}

	session.IncrementRequests()
	return &types.GenerateAdviceResult{Advice: adv}, nil
}

// recordPair stores score from both users' points of view.
func (h *handlers) recordPair(ctx context.Context, a, b, kind string, score float64) {
	h.record(ctx, a, b, kind, score)
	h.record(ctx, b, a, kind, score)
}

// record is best effort: a history write failure never fails the request.
func (h *handlers) record(ctx context.Context, userID, otherID, kind string, score float64) {
	if h.deps.History == nil {
		return
	}
	requestID := logging.RequestIDFromContext(ctx)
	if err := h.deps.History.Record(requestID, userID, otherID, kind, score); err != nil {
		h.logger.Warn("failed to record match history",
			"request_id", requestID,
			"user_id", userID,
			logging.ErrAttr(err),
		)
	}
}
