package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/Motta-Financial/statement-audit/internal/gateway"
	"github.com/Motta-Financial/statement-audit/internal/model"
)

// Gateway implements gateway.Gateway against BigQuery. It holds a shared
// client to avoid creating a new connection per operation.
type Gateway struct {
	client  *bigquery.Client
	dataset string
}

// NewGateway creates a gateway with its own BigQuery client.
func NewGateway(ctx context.Context, projectID, dataset string) (*Gateway, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewGateway: creating client: %w", err)
	}
	return &Gateway{client: client, dataset: dataset}, nil
}

// NewGatewayWithClient wraps an existing client; the caller keeps ownership
// of it.
func NewGatewayWithClient(client *bigquery.Client, dataset string) *Gateway {
	return &Gateway{client: client, dataset: dataset}
}

// Close closes the underlying BigQuery client.
func (g *Gateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// LoadPatterns implements gateway.Gateway.
func (g *Gateway) LoadPatterns(ctx context.Context, institution string) ([]model.LearnedPattern, error) {
	return LoadPatternsWithClient(ctx, g.client, g.dataset, institution)
}

// SavePattern implements gateway.Gateway.
func (g *Gateway) SavePattern(ctx context.Context, p model.LearnedPattern) (*model.LearnedPattern, error) {
	return UpsertPatternWithClient(ctx, g.client, g.dataset, p)
}

// SavePatternsBulk implements gateway.Gateway. Each pattern is merged on
// its natural key individually; BigQuery DML rates make this acceptable at
// sync cadence.
func (g *Gateway) SavePatternsBulk(ctx context.Context, ps []model.LearnedPattern) (int, error) {
	written := 0
	for _, p := range ps {
		if _, err := UpsertPatternWithClient(ctx, g.client, g.dataset, p); err != nil {
			return written, fmt.Errorf("SavePatternsBulk: pattern %s/%s: %w", p.Institution, p.OriginalValue, err)
		}
		written++
	}
	return written, nil
}

// SaveFeedback implements gateway.Gateway.
func (g *Gateway) SaveFeedback(ctx context.Context, c model.TransactionCorrection) (*model.TransactionCorrection, error) {
	return InsertFeedbackWithClient(ctx, g.client, g.dataset, c)
}

// LoadFeedback implements gateway.Gateway.
func (g *Gateway) LoadFeedback(ctx context.Context, institution string, limit int) ([]model.TransactionCorrection, error) {
	return LoadFeedbackWithClient(ctx, g.client, g.dataset, institution, limit)
}

// LoadMetrics implements gateway.Gateway.
func (g *Gateway) LoadMetrics(ctx context.Context, institution string) ([]model.LearningMetrics, error) {
	return LoadMetricsWithClient(ctx, g.client, g.dataset, institution)
}

// UpdateMetrics implements gateway.Gateway.
func (g *Gateway) UpdateMetrics(ctx context.Context, m model.LearningMetrics) (*model.LearningMetrics, error) {
	return UpsertMetricsWithClient(ctx, g.client, g.dataset, m)
}

// LogEvent implements gateway.Gateway.
func (g *Gateway) LogEvent(ctx context.Context, institution, eventType, details string) error {
	return InsertEventWithClient(ctx, g.client, g.dataset, institution, eventType, details)
}

// CalculateImprovementTrend implements gateway.Gateway.
func (g *Gateway) CalculateImprovementTrend(ctx context.Context, institution string) (int, error) {
	return ImprovementTrendWithClient(ctx, g.client, g.dataset, institution)
}

// Ensure Gateway implements the contract.
var _ gateway.Gateway = (*Gateway)(nil)
