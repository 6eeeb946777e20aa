// Package types holds the wire types of the match engine's JSON-RPC protocol.
package types

import (
	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/internal/advisor"
	"github.com/personamatch/engine/internal/compat"
	"github.com/personamatch/engine/internal/personality"
	"github.com/personamatch/engine/internal/similarity"
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error object.
type RPCError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData holds structured error detail.
type ErrorData struct {
	ErrorType string `json:"error_type"`
	Retryable bool   `json:"retryable"`
	Detail    string `json:"detail"`
}

// InitializeParams holds parameters for the initialize method.
type InitializeParams struct {
	SDKName              string   `json:"sdk_name"`
	SDKVersion           string   `json:"sdk_version"`
	ProtocolVersion      int      `json:"protocol_version"`
	RequiredCapabilities []string `json:"required_capabilities"`
	Locale               string   `json:"locale,omitempty"`
}

// InitializeResult holds the result of the initialize method.
type InitializeResult struct {
	EngineVersion         string   `json:"engine_version"`
	ProtocolVersion       int      `json:"protocol_version"`
	Capabilities          []string `json:"capabilities"`
	Missing               []string `json:"missing"`
	Compatible            bool     `json:"compatible"`
	MaxConcurrentRequests int      `json:"max_concurrent_requests"`
}

// MatchingScoreParams holds parameters for the matching_score method.
// Nil option pointers mean "use the default" (enabled).
// When both user IDs are set the score is recorded in match history.
type MatchingScoreParams struct {
	UserA      []personality.Record `json:"user_a"`
	UserB      []personality.Record `json:"user_b"`
	UserAID    string               `json:"user_a_id,omitempty"`
	UserBID    string               `json:"user_b_id,omitempty"`
	UseWeights *bool                `json:"use_weights,omitempty"`
	RemoveBias *bool                `json:"remove_bias,omitempty"`
}

// MatchingScoreResult holds the result of the matching_score method.
type MatchingScoreResult struct {
	Score int              `json:"score"`
	Grade similarity.Grade `json:"grade"`
}

// CandidateRecord is one user to rank.
type CandidateRecord struct {
	ID         string               `json:"id"`
	Data       []personality.Record `json:"data"`
	Similarity int                  `json:"similarity"`
}

// RankCandidatesParams holds parameters for the rank_candidates method.
// When CurrentID is set, Current and Candidates are loaded from the profile
// store instead.
type RankCandidatesParams struct {
	CurrentID  string               `json:"current_id,omitempty"`
	Current    []personality.Record `json:"current,omitempty"`
	Candidates []CandidateRecord    `json:"candidates,omitempty"`
}

// RankCandidatesResult holds the result of the rank_candidates method.
type RankCandidatesResult struct {
	Candidates []CandidateRecord `json:"candidates"`
}

// AnalyzeCompatibilityParams holds parameters for the analyze_compatibility method.
type AnalyzeCompatibilityParams struct {
	UserA   []personality.Record `json:"user_a"`
	UserB   []personality.Record `json:"user_b"`
	UserAID string               `json:"user_a_id,omitempty"`
	UserBID string               `json:"user_b_id,omitempty"`
	Locale  string               `json:"locale,omitempty"`
}

// AnalyzeCompatibilityResult holds the result of the analyze_compatibility
// method. Report is null when either user has no traits.
type AnalyzeCompatibilityResult struct {
	Report *compat.Report `json:"report"`
}

// PutProfileParams holds parameters for the put_profile method.
type PutProfileParams struct {
	UserID string               `json:"user_id"`
	Data   []personality.Record `json:"data"`
}

// PutProfileResult holds the result of the put_profile method.
type PutProfileResult struct {
	Stored bool `json:"stored"`
}

// GetProfileParams holds parameters for the get_profile method.
type GetProfileParams struct {
	UserID string `json:"user_id"`
}

// GetProfileResult holds the result of the get_profile method.
type GetProfileResult struct {
	UserID    string               `json:"user_id"`
	Data      []personality.Record `json:"data"`
	UpdatedAt string               `json:"updated_at"`
}

// MatchHistoryParams holds parameters for the match_history method.
type MatchHistoryParams struct {
	UserID string `json:"user_id"`
	Window int    `json:"window,omitempty"`
}

// MatchHistoryResult holds the result of the match_history method.
type MatchHistoryResult struct {
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	StdDev float64   `json:"stddev"`
	Count  int       `json:"count"`
}

// AdviceNames optionally names the two users in generated advice.
type AdviceNames struct {
	A string `json:"a,omitempty"`
	B string `json:"b,omitempty"`
}

// GenerateAdviceParams holds parameters for the generate_advice method.
type GenerateAdviceParams struct {
	UserA    []personality.Record `json:"user_a"`
	UserB    []personality.Record `json:"user_b"`
	Names    *AdviceNames         `json:"names,omitempty"`
	Language string               `json:"language,omitempty"`
}

// GenerateAdviceResult holds the result of the generate_advice method.
type GenerateAdviceResult struct {
	Advice *advisor.Advice `json:"advice"`
}

// ShutdownResult holds the result of the shutdown method.
type ShutdownResult struct {
	SessionsCompleted int `json:"sessions_completed"`
	RequestsServed    int `json:"requests_served"`
}
