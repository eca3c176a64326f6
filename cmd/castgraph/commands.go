package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/report"
	"github.com/efebarandurmaz/castgraph/internal/run"
	"github.com/efebarandurmaz/castgraph/internal/temporal"
)

func runStats(ctx context.Context, a *app) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	res, err := r.Stats(ctx, in)
	if err != nil {
		return err
	}
	return a.printer.Emit(res, func(s *report.Styles) string {
		return renderStats(s, res, a.top)
	})
}

func renderStats(s *report.Styles, res *run.StatsResult, top int) string {
	return report.Join(
		report.Connectivity(s, res.Connectivity, res.Clustering),
		report.Centralities(s, res.Centralities, top),
		report.Degrees(s, res.Degrees),
	)
}

func runRank(ctx context.Context, a *app) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	res, err := r.Rank(ctx, in)
	if err != nil {
		return err
	}
	return a.printer.Emit(res, func(s *report.Styles) string {
		return renderRank(s, res, a.top)
	})
}

func renderRank(s *report.Styles, res *run.RankResult, top int) string {
	return report.Join(report.PageRank(s, res.PageRank, top), report.HITS(s, res.HITS, top))
}

func runCommunities(ctx context.Context, a *app, algorithms []string) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	res, err := r.Communities(ctx, in, algorithms...)
	if err != nil {
		return err
	}
	return a.printer.Emit(res, func(s *report.Styles) string {
		return report.Communities(s, res.Results, res.Comparisons)
	})
}

func runStructure(ctx context.Context, a *app) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	res, err := r.Structure(ctx, in)
	if err != nil {
		return err
	}
	return a.printer.Emit(res, func(s *report.Styles) string {
		return renderStructure(s, res)
	})
}

func renderStructure(s *report.Styles, res *run.StructureResult) string {
	return report.Join(
		report.Cliques(s, res.Cliques),
		report.Homophily(s, res.Homophily),
		report.Bridges(s, res.Bridges),
	)
}

func runEgo(ctx context.Context, a *app, character string, perSection bool) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	if !perSection {
		n, err := r.Ego(ctx, in, character)
		if err != nil {
			return err
		}
		return a.printer.Emit(n, func(s *report.Styles) string {
			return report.Ego(s, n, a.top)
		})
	}
	nets, err := r.EgoSections(ctx, in, character)
	if err != nil {
		return err
	}
	return a.printer.Emit(nets, func(s *report.Styles) string {
		blocks := make([]string, len(nets))
		for i, se := range nets {
			blocks[i] = report.Section(s, se.Section, report.Ego(s, se.Network, a.top))
		}
		return report.Join(blocks...)
	})
}

// progressionOutput is the JSON shape of the progression command.
type progressionOutput struct {
	*progression.Progression
	Diff *progression.SectionDiff `json:"diff,omitempty"`
}

func runProgression(ctx context.Context, a *app, metric string, diffAt int) error {
	if metric != "" {
		a.cfg.Analysis.Progression.Metric = metric
	}
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	p, err := r.Progression(ctx, in)
	if err != nil {
		return err
	}
	out := progressionOutput{Progression: p}
	if diffAt != 0 {
		if diffAt < 1 || diffAt >= len(p.Sections) {
			return fmt.Errorf("--diff must be between 1 and %d", len(p.Sections)-1)
		}
		out.Diff = p.DiffSections(diffAt - 1)
	}
	return a.printer.Emit(out, func(s *report.Styles) string {
		blocks := []string{report.Progression(s, p, a.top)}
		if out.Diff != nil {
			blocks = append(blocks, report.Diff(s, p.Sections[diffAt-1], p.Sections[diffAt], out.Diff, a.top))
		}
		return report.Join(blocks...)
	})
}

func runAll(ctx context.Context, a *app) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	rep, err := r.All(ctx, in)
	if err != nil {
		return err
	}
	return a.printer.Emit(rep, func(s *report.Styles) string {
		return renderReport(s, rep, a.top)
	})
}

func renderReport(s *report.Styles, rep *run.Report, top int) string {
	blocks := []string{
		s.Title.Render("castgraph: " + rep.Dataset),
		renderStats(s, rep.Stats, top),
		renderRank(s, rep.Rank, top),
		report.Communities(s, rep.Communities.Results, rep.Communities.Comparisons),
		renderStructure(s, rep.Structure),
	}
	if rep.Progression != nil {
		blocks = append(blocks, report.Progression(s, rep.Progression, top))
	}
	return report.Join(blocks...)
}

func runSync(ctx context.Context, a *app) error {
	r, err := a.graphRunner(ctx)
	if err != nil {
		return err
	}
	in, err := r.Load(ctx, a.dataset)
	if err != nil {
		return err
	}
	rep, err := r.Sync(ctx, in)
	if err != nil {
		return err
	}
	snap := run.Snapshot(in, rep)
	status := map[string]any{
		"dataset":      in.Dataset,
		"characters":   in.Graph.NodeCount(),
		"interactions": in.Graph.EdgeCount(),
		"scores":       len(snap.Scores),
		"partitions":   len(snap.Communities),
	}
	return a.printer.Emit(status, func(s *report.Styles) string {
		return report.Section(s, "synced "+in.Dataset, report.KeyValues(s,
			[2]string{"characters", fmt.Sprint(in.Graph.NodeCount())},
			[2]string{"interactions", fmt.Sprint(in.Graph.EdgeCount())},
			[2]string{"score properties", fmt.Sprint(len(snap.Scores))},
			[2]string{"community properties", fmt.Sprint(len(snap.Communities))},
		))
	})
}

func runRolesIndex(ctx context.Context, a *app) error {
	r, err := a.vectorRunner(ctx)
	if err != nil {
		return err
	}
	in, err := r.Load(ctx, a.dataset)
	if err != nil {
		return err
	}
	n, err := r.IndexRoles(ctx, in)
	if err != nil {
		return err
	}
	status := map[string]any{"dataset": in.Dataset, "indexed": n, "skipped": in.Graph.NodeCount() - n}
	return a.printer.Emit(status, func(s *report.Styles) string {
		return report.KeyValues(s,
			[2]string{"dataset", in.Dataset},
			[2]string{"indexed", fmt.Sprint(n)},
			[2]string{"skipped (no ties)", fmt.Sprint(in.Graph.NodeCount() - n)},
		)
	})
}

func runRolesSimilar(ctx context.Context, a *app, character string, k int, scope string) error {
	r, err := a.vectorRunner(ctx)
	if err != nil {
		return err
	}
	in, err := r.Load(ctx, a.dataset)
	if err != nil {
		return err
	}
	hits, err := r.SimilarRoles(ctx, in, character, k, scope)
	if err != nil {
		return err
	}
	return a.printer.Emit(hits, func(s *report.Styles) string {
		return report.Roles(s, strings.ToLower(strings.TrimSpace(character)), hits)
	})
}

func runBatch(ctx context.Context, a *app, metric string, syncGraph bool) error {
	if metric != "" {
		a.cfg.Analysis.Progression.Metric = metric
	}
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	if len(in.Sections) == 0 {
		return fmt.Errorf("batch needs sections; set --section-column")
	}
	opts := r.ProgressionOptions(in)
	if err := opts.Validate(); err != nil {
		return err
	}

	tc := a.cfg.Temporal
	c, err := temporal.Dial(tc.Host, tc.Namespace, a.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	a.logger.Info("starting batch workflow", "dataset", in.Dataset, "sections", len(in.Sections), "task_queue", tc.TaskQueue)
	out, err := temporal.RunBatch(ctx, c, tc.TaskQueue, temporal.BatchInput{
		Dataset:  in.Dataset,
		Sections: in.Sections,
		Options:  opts,
		Sync:     syncGraph,
	})
	if err != nil {
		return err
	}
	return a.printer.Emit(out, func(s *report.Styles) string {
		return report.Progression(s, out.Progression, a.top)
	})
}

func runExport(ctx context.Context, a *app, format, algorithm string) error {
	r, in, err := a.input(ctx)
	if err != nil {
		return err
	}
	text, err := r.Export(ctx, in, format, algorithm)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, strings.TrimRight(text, "\n"))
	return err
}

func joinNames(names []string) string { return strings.Join(names, ", ") }
