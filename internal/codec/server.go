package codec

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/spa-engine/internal/cast"
	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/logging"
	"github.com/danielpatrickdp/spa-engine/internal/model"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vecgen"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region server
// Server exposes a network over spa.Engine.
type Server struct {
	net    *model.Network
	logger *slog.Logger
	db     *sql.DB
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSelectionLog records every decision made through Step in db's
// selection_log table.
func WithSelectionLog(db *sql.DB) ServerOption { return func(s *Server) { s.db = db } }

// NewServer serves net. A nil logger uses slog.Default.
func NewServer(net *model.Network, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{net: net, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vocabulary takes {name} and returns {name, dimensions, algebra, strict,
// max_similarity, keys, vectors}.
func (s *Server) Vocabulary(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["name"].GetStringValue()
	v, ok := s.net.Vocabulary(name)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "vocabulary %q", name)
	}
	var vectors []any
	for _, e := range v.Entries() {
		vectors = append(vectors, floats(e.Vector))
	}
	return structpb.NewStruct(map[string]any{
		"name":           name,
		"dimensions":     float64(v.Dimensions()),
		"algebra":        v.Algebra().Name(),
		"strict":         v.Strict(),
		"max_similarity": v.MaxSimilarity(),
		"keys":           strs(v.Keys()),
		"vectors":        vectors,
	})
}

// Evaluate takes {expr, vocab} and returns {kind, scalar} or {kind, vector,
// vocab}. vocab may be empty when the expression names a state.
func (s *Server) Evaluate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	v, err := s.net.Evaluate(f["expr"].GetStringValue(), f["vocab"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if v.Kind == expr.Scalar {
		return structpb.NewStruct(map[string]any{"kind": "scalar", "scalar": v.Scalar})
	}
	out := map[string]any{"kind": "vector", "vector": floats(v.Pointer.Data())}
	if sp := v.Pointer.Space(); sp != nil {
		out["vocab"] = sp.Label()
	}
	return structpb.NewStruct(out)
}

// Set takes {state, expr} and assigns the evaluated expression to the state.
func (s *Server) Set(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	if err := s.net.Set(f["state"].GetStringValue(), f["expr"].GetStringValue()); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

// Step runs one decision cycle and returns {decisions: [{step_id, block,
// winner, action, utilities, applied}]}.
func (s *Server) Step(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	decisions, err := s.net.Step()
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]any, 0, len(decisions))
	for _, d := range decisions {
		if s.db != nil {
			entry, err := logging.FromDecision(d, "rpc")
			if err == nil {
				err = logging.LogSelection(s.db, entry)
			}
			if err != nil {
				s.logger.Warn("selection log failed", "block", d.Block, "error", err)
			}
		}
		out = append(out, map[string]any{
			"step_id":   d.StepID.String(),
			"block":     d.Block,
			"winner":    float64(d.Winner),
			"action":    d.Action,
			"utilities": floats(d.Utilities),
			"applied":   strs(d.Applied),
		})
	}
	return structpb.NewStruct(map[string]any{"decisions": out})
}
// #endregion server

// #region interceptor
// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
// #endregion interceptor

// #region errors
// toStatus maps engine errors onto gRPC codes.
func toStatus(err error) error {
	var (
		pe *expr.ParseError
		ke *expr.KindError
		ue *vocab.UnknownPointerError
		dm *pointer.DimensionMismatchError
		sm *pointer.SpaceMismatchError
		ct *cast.CastTargetError
	)
	switch {
	case errors.Is(err, model.ErrUnknownState), errors.Is(err, model.ErrUnknownVocabulary), errors.As(err, &ue):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &pe), errors.As(err, &ke), errors.As(err, &ct):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &dm), errors.As(err, &sm), errors.Is(err, cast.ErrNoSharedKeys),
		errors.Is(err, vecgen.ErrConstraintUnsatisfiable), errors.Is(err, vocab.ErrFrozen):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
// #endregion errors
