package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/castgraph/internal/ego"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/run"
	"github.com/efebarandurmaz/castgraph/internal/server"
)

var version = "dev"

func main() {
	ctx, stop := server.NotifyContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "castgraph",
		Short:         "Character interaction network analysis",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.OutOrStdout())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file path")
	pf.StringVar(&a.edges, "edges", "", "Edge list CSV (overrides data.edges)")
	pf.StringVar(&a.characters, "characters", "", "Character table CSV (overrides data.characters)")
	pf.StringVar(&a.section, "section-column", "", "Edge list column naming the section, e.g. book")
	pf.StringVar(&a.dataset, "dataset", "", "Dataset name in the stores (default: edge file name)")
	pf.BoolVar(&a.fromStore, "from-store", false, "Read the dataset from the graph store instead of CSV")
	pf.BoolVar(&a.jsonOut, "json", false, "Output results as JSON")
	pf.BoolVar(&a.summary, "summary", false, "Print the run summary to stderr")
	pf.IntVar(&a.top, "top", 0, "Rows per ranking (default: analysis.top)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text, json, logfmt")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Centralities, clustering, connectivity and degree distributions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runStats(cmd.Context(), a))
		},
	}

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "PageRank and HITS",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runRank(cmd.Context(), a))
		},
	}

	var algorithms []string
	communitiesCmd := &cobra.Command{
		Use:   "communities",
		Short: "Detect communities and compare the detectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runCommunities(cmd.Context(), a, algorithms))
		},
	}
	communitiesCmd.Flags().StringSliceVar(&algorithms, "algorithm", nil, "Detectors to run: girvan_newman, louvain, leiden (default: all)")

	structureCmd := &cobra.Command{
		Use:   "structure",
		Short: "Cliques, homophily, bridges and articulation points",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runStructure(cmd.Context(), a))
		},
	}

	var (
		perSection bool
		radius     int
		mode       float64
		minWeight  float64
	)
	egoCmd := &cobra.Command{
		Use:   "ego <character>",
		Short: "Extract a character's ego network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &a.cfg.Analysis.Ego
			if cmd.Flags().Changed("radius") {
				opts.Radius = radius
			}
			if cmd.Flags().Changed("mode") {
				opts.Mode = ego.Mode(mode)
			}
			if cmd.Flags().Changed("min-weight") {
				opts.MinWeight = minWeight
			}
			return a.done(runEgo(cmd.Context(), a, args[0], perSection))
		},
	}
	egoCmd.Flags().BoolVar(&perSection, "sections", false, "Extract the ego network in every section")
	egoCmd.Flags().IntVar(&radius, "radius", 0, "Hops around the character (default: analysis.ego.radius)")
	egoCmd.Flags().Float64Var(&mode, "mode", 0, "1.0 keeps only the character's ties, 1.5 also ties among neighbours (default: analysis.ego.mode)")
	egoCmd.Flags().Float64Var(&minWeight, "min-weight", 0, "Drop ties lighter than this (default: analysis.ego.min_weight)")

	var (
		metric string
		diffAt int
	)
	progressionCmd := &cobra.Command{
		Use:   "progression",
		Short: "Follow a centrality across sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runProgression(cmd.Context(), a, metric, diffAt))
		},
	}
	progressionCmd.Flags().StringVar(&metric, "metric", "", "Metric to follow (default: analysis.progression.metric); one of "+joinNames(progression.Metrics()))
	progressionCmd.Flags().IntVar(&diffAt, "diff", 0, "Also compare section N with section N+1 (1-based)")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Run every analysis concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runAll(cmd.Context(), a))
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Analyze and write the graph, scores and communities to Neo4j",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runSync(cmd.Context(), a))
		},
	}

	rolesCmd := &cobra.Command{
		Use:   "roles",
		Short: "Role fingerprints in Qdrant",
	}
	rolesIndexCmd := &cobra.Command{
		Use:   "index",
		Short: "Index a role fingerprint for every character",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runRolesIndex(cmd.Context(), a))
		},
	}
	var (
		k     int
		scope string
	)
	rolesSimilarCmd := &cobra.Command{
		Use:   "similar <character>",
		Short: "Find characters with the most similar role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runRolesSimilar(cmd.Context(), a, args[0], k, scope))
		},
	}
	rolesSimilarCmd.Flags().IntVar(&k, "k", 5, "Number of characters to return")
	rolesSimilarCmd.Flags().StringVar(&scope, "scope", "", "Dataset to search (default: every indexed dataset)")
	rolesCmd.AddCommand(rolesIndexCmd, rolesSimilarCmd)

	var batchSync bool
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the per-section progression as a Temporal workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runBatch(cmd.Context(), a, metric, batchSync))
		},
	}
	batchCmd.Flags().StringVar(&metric, "metric", "", "Metric to follow (default: analysis.progression.metric)")
	batchCmd.Flags().BoolVar(&batchSync, "sync", false, "Also write the whole graph to Neo4j from the workflow")

	var format, groupBy string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph as DOT, Mermaid or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.done(runExport(cmd.Context(), a, format, groupBy))
		},
	}
	exportCmd.Flags().StringVar(&format, "format", run.FormatDOT, "Output format: dot, mermaid, json")
	exportCmd.Flags().StringVar(&groupBy, "communities", "", "Group characters by this detector's partition")

	rootCmd.AddCommand(statsCmd, rankCmd, communitiesCmd, structureCmd, egoCmd,
		progressionCmd, allCmd, syncCmd, rolesCmd, batchCmd, exportCmd)
	return rootCmd
}

// done releases the app's resources and passes err through.
func (a *app) done(err error) error {
	a.finish(err)
	return err
}
