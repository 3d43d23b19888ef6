package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// VocabularyInfo is the response of a Vocabulary call.
type VocabularyInfo struct {
	Name          string
	Dimensions    int
	Algebra       string
	Strict        bool
	MaxSimilarity float64
	Keys          []string
	Vectors       [][]float64
}

// EvalResult is the response of an Evaluate call. Vector is nil for scalar
// results.
type EvalResult struct {
	Kind   string // "scalar" | "vector"
	Scalar float64
	Vector []float64
	Vocab  string
}

// StepDecision is one block's decision as returned by Step.
type StepDecision struct {
	StepID    string
	Block     string
	Winner    int
	Action    string
	Utilities []float64
	Applied   []string
}
// #endregion types

// #region client-struct
// CodecClient wraps a gRPC connection to a spa.Engine server.
type CodecClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to a spa.Engine server.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, cc: conn}, nil
}

// NewCodecClientWithConn creates a CodecClient over an existing connection.
// Close does not close cc.
func NewCodecClientWithConn(cc grpc.ClientConnInterface) *CodecClient {
	return &CodecClient{cc: cc}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region invoke
func (c *CodecClient) invoke(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
// #endregion invoke

// #region vocabulary
// Vocabulary fetches a vocabulary's keys and vectors.
func (c *CodecClient) Vocabulary(ctx context.Context, name string) (VocabularyInfo, error) {
	resp, err := c.invoke(ctx, "Vocabulary", map[string]any{"name": name})
	if err != nil {
		return VocabularyInfo{}, fmt.Errorf("vocabulary rpc: %w", err)
	}
	info := VocabularyInfo{Keys: toStrings(resp["keys"])}
	info.Name, _ = resp["name"].(string)
	dims, _ := resp["dimensions"].(float64)
	info.Dimensions = int(dims)
	info.Algebra, _ = resp["algebra"].(string)
	info.Strict, _ = resp["strict"].(bool)
	info.MaxSimilarity, _ = resp["max_similarity"].(float64)
	vectors, _ := resp["vectors"].([]any)
	for _, v := range vectors {
		info.Vectors = append(info.Vectors, toFloats(v))
	}
	return info, nil
}
// #endregion vocabulary

// #region evaluate
// Evaluate evaluates an expression; vocabName may be empty.
func (c *CodecClient) Evaluate(ctx context.Context, expression, vocabName string) (EvalResult, error) {
	resp, err := c.invoke(ctx, "Evaluate", map[string]any{"expr": expression, "vocab": vocabName})
	if err != nil {
		return EvalResult{}, fmt.Errorf("evaluate rpc: %w", err)
	}
	var r EvalResult
	r.Kind, _ = resp["kind"].(string)
	r.Scalar, _ = resp["scalar"].(float64)
	r.Vocab, _ = resp["vocab"].(string)
	if v, ok := resp["vector"]; ok {
		r.Vector = toFloats(v)
	}
	return r, nil
}
// #endregion evaluate

// #region set
// Set assigns an expression to a state.
func (c *CodecClient) Set(ctx context.Context, state, expression string) error {
	if _, err := c.invoke(ctx, "Set", map[string]any{"state": state, "expr": expression}); err != nil {
		return fmt.Errorf("set rpc: %w", err)
	}
	return nil
}
// #endregion set

// #region step
// Step runs one decision cycle on the server.
func (c *CodecClient) Step(ctx context.Context) ([]StepDecision, error) {
	resp, err := c.invoke(ctx, "Step", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("step rpc: %w", err)
	}
	list, _ := resp["decisions"].([]any)
	out := make([]StepDecision, 0, len(list))
	for _, item := range list {
		m, _ := item.(map[string]any)
		var d StepDecision
		d.StepID, _ = m["step_id"].(string)
		d.Block, _ = m["block"].(string)
		d.Action, _ = m["action"].(string)
		winner, _ := m["winner"].(float64)
		d.Winner = int(winner)
		d.Utilities = toFloats(m["utilities"])
		d.Applied = toStrings(m["applied"])
		out = append(out, d)
	}
	return out, nil
}
// #endregion step
