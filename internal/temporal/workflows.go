package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/records"
)

const maxAttempts = 3

// BatchInput holds the workflow parameters.
type BatchInput struct {
	Dataset  string
	Sections []records.Section
	Options  progression.Options

	// Sync stores the whole work in the graph repository once the
	// sections are analyzed.
	Sync bool
}

// BatchOutput holds the workflow result.
type BatchOutput struct {
	Dataset     string
	Progression *progression.Progression
	Sections    []SectionResult
	Synced      *SyncResult `json:",omitempty"`
}

// SectionAnalysisWorkflow analyzes every section in parallel, then
// follows the chosen centrality across them.
func SectionAnalysisWorkflow(ctx workflow.Context, input BatchInput) (*BatchOutput, error) {
	if len(input.Sections) == 0 {
		return nil, sdktemporal.NewNonRetryableApplicationError("no sections to analyze", "InvalidInput", nil)
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: maxAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	log := workflow.GetLogger(ctx)

	// Step 1: fan out one activity per section
	futures := make([]workflow.Future, len(input.Sections))
	for i, sec := range input.Sections {
		futures[i] = workflow.ExecuteActivity(ctx, AnalyzeSectionActivity, SectionInput{
			Index:   i,
			Name:    sec.Name,
			Records: sec.Records,
			Options: input.Options,
		})
	}
	results := make([]SectionResult, len(futures))
	for i, f := range futures {
		if err := f.Get(ctx, &results[i]); err != nil {
			return nil, fmt.Errorf("section %q: %w", input.Sections[i].Name, err)
		}
	}
	log.Info("sections analyzed", "dataset", input.Dataset, "sections", len(results))

	// Step 2: summarize in section order
	var prog progression.Progression
	if err := workflow.ExecuteActivity(ctx, SummarizeActivity, input.Options.Metric, results).Get(ctx, &prog); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	output := &BatchOutput{
		Dataset:     input.Dataset,
		Progression: &prog,
		Sections:    results,
	}

	// Step 3: optional sync of the whole work
	if input.Sync {
		var all []network.Record
		for _, sec := range input.Sections {
			all = append(all, sec.Records...)
		}
		var synced SyncResult
		err := workflow.ExecuteActivity(ctx, SyncActivity, SyncInput{
			Dataset: input.Dataset,
			Records: all,
			Options: input.Options,
		}).Get(ctx, &synced)
		if err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}
		output.Synced = &synced
	}
	return output, nil
}
