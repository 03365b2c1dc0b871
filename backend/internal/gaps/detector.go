package gaps

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arthur-graph/backend/pkg/logger"
)

// Store is the slice of the graph adapter the detector needs
type Store interface {
	Read(ctx context.Context, cypher string, params map[string]interface{}) ([]map[string]interface{}, error)
}

// Detector evaluates the fixed gap rule battery against the graph
type Detector struct {
	store        Store
	lookbackDays int
	logger       *zap.Logger
}

// NewDetector creates a new gap detector. lookbackDays parameterizes the
// expected-event time windows in the rules.
func NewDetector(store Store, lookbackDays int) *Detector {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &Detector{
		store:        store,
		lookbackDays: lookbackDays,
		logger:       logger.Get(),
	}
}

// GroupResult is the outcome of one gap definition
type GroupResult struct {
	GapType     string                   `json:"gapType"`
	Priority    string                   `json:"priority"`
	Description string                   `json:"description"`
	Count       int                      `json:"count"`
	Details     []map[string]interface{} `json:"details"`
}

// Summary aggregates all gap definitions for one detection run
type Summary struct {
	TotalGaps   int           `json:"totalGaps"`
	Gaps        []GroupResult `json:"gaps"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// DetectAllGaps evaluates every definition and unions the results. The
// definitions are independent reads, so they run concurrently; result order
// always follows the fixed definition order regardless of completion order.
func (d *Detector) DetectAllGaps(ctx context.Context) (*Summary, error) {
	return d.detect(ctx, "")
}

// GapsForPatient evaluates every definition scoped to a single patient
func (d *Detector) GapsForPatient(ctx context.Context, patientName string) (*Summary, error) {
	if patientName == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	return d.detect(ctx, patientName)
}

// GapsByPriority evaluates only the definitions at the given priority
func (d *Detector) GapsByPriority(ctx context.Context, priority string) (*Summary, error) {
	switch priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return nil, fmt.Errorf("unknown priority: %q", priority)
	}
	return d.detectFiltered(ctx, func(def Definition) bool {
		return def.Priority == priority
	})
}

// GapsByType evaluates a single definition by its gap type
func (d *Detector) GapsByType(ctx context.Context, gapType string) (*Summary, error) {
	found := false
	for _, def := range definitions {
		if def.Type == gapType {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("unknown gap type: %q", gapType)
	}
	return d.detectFiltered(ctx, func(def Definition) bool {
		return def.Type == gapType
	})
}

func (d *Detector) detect(ctx context.Context, patientName string) (*Summary, error) {
	return d.run(ctx, definitions, patientName)
}

func (d *Detector) detectFiltered(ctx context.Context, keep func(Definition) bool) (*Summary, error) {
	var selected []Definition
	for _, def := range definitions {
		if keep(def) {
			selected = append(selected, def)
		}
	}
	return d.run(ctx, selected, "")
}

func (d *Detector) run(ctx context.Context, defs []Definition, patientName string) (*Summary, error) {
	var patient interface{}
	if patientName != "" {
		patient = patientName
	}
	params := map[string]interface{}{
		"patient": patient,
		"days":    d.lookbackDays,
	}

	results := make([]GroupResult, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		g.Go(func() error {
			rows, err := d.store.Read(gctx, def.Cypher, params)
			if err != nil {
				return fmt.Errorf("gap rule %s: %w", def.Type, err)
			}
			results[i] = GroupResult{
				GapType:     def.Type,
				Priority:    def.Priority,
				Description: def.Description,
				Count:       len(rows),
				Details:     rows,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Gaps:        results,
		GeneratedAt: time.Now().UTC(),
	}
	for _, result := range results {
		summary.TotalGaps += result.Count
	}

	d.logger.Info("Gap detection complete",
		zap.Int("rules", len(defs)),
		zap.Int("total_gaps", summary.TotalGaps),
		zap.String("patient", patientName),
	)

	return summary, nil
}
