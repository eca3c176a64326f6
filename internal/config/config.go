package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/ego"
	"github.com/efebarandurmaz/castgraph/internal/linkanalysis"
	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/records"
	"github.com/efebarandurmaz/castgraph/internal/stats"
	"github.com/efebarandurmaz/castgraph/internal/structure"
)

// EnvPrefix prefixes every environment override, e.g.
// CASTGRAPH_ANALYSIS_PAGERANK_DAMPING.
const EnvPrefix = "CASTGRAPH"

// Config holds all application configuration.
type Config struct {
	Data     DataConfig                  `mapstructure:"data"`
	Analysis AnalysisConfig              `mapstructure:"analysis"`
	Graph    GraphConfig                 `mapstructure:"graph"`
	Vector   VectorConfig                `mapstructure:"vector"`
	Temporal TemporalConfig              `mapstructure:"temporal"`
	Tracing  observability.TracingConfig `mapstructure:"tracing"`
	Server   ServerConfig                `mapstructure:"server"`
	Log      LogConfig                   `mapstructure:"log"`
}

// DataConfig locates the input tables.
type DataConfig struct {
	Edges      string              `mapstructure:"edges"`
	Characters string              `mapstructure:"characters"`
	NameColumn string              `mapstructure:"name_column"`
	Columns    records.EdgeColumns `mapstructure:"columns"`

	// Attributes limits homophily to these character-table columns.
	// Empty means every attribute column.
	Attributes []string `mapstructure:"attributes"`
}

// AnalysisConfig carries the parameters of every analysis.
type AnalysisConfig struct {
	PageRank    linkanalysis.PageRankConfig `mapstructure:"pagerank"`
	HITS        linkanalysis.HITSConfig     `mapstructure:"hits"`
	Eigenvector stats.EigenvectorOptions    `mapstructure:"eigenvector"`
	Community   community.Options           `mapstructure:"community"`
	Homophily   structure.HomophilyOptions  `mapstructure:"homophily"`
	Bridges     structure.BridgeOptions     `mapstructure:"bridges"`
	CliqueMode  structure.CliqueMode        `mapstructure:"clique_mode"`
	Ego         ego.Options                 `mapstructure:"ego"`
	Progression progression.Options         `mapstructure:"progression"`

	// Top bounds the rankings printed by the CLI.
	Top int `mapstructure:"top"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// ServerConfig is the worker's health and metrics listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns a configuration usable without a config file.
func Defaults() *Config {
	tracing := observability.DefaultTracingConfig()
	return &Config{
		Data: DataConfig{
			NameColumn: "name",
			Columns:    records.DefaultEdgeColumns(),
		},
		Analysis: AnalysisConfig{
			PageRank:    linkanalysis.DefaultPageRankConfig(),
			HITS:        linkanalysis.DefaultHITSConfig(),
			Eigenvector: stats.DefaultEigenvectorOptions(),
			Community:   community.DefaultOptions(),
			Homophily:   structure.DefaultHomophilyOptions(),
			CliqueMode:  structure.CliqueReciprocal,
			Ego:         ego.DefaultOptions(),
			Progression: progression.DefaultOptions(),
			Top:         10,
		},
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Vector: VectorConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "castgraph_roles",
		},
		Temporal: TemporalConfig{
			Host:      "localhost:7233",
			Namespace: "default",
			TaskQueue: "castgraph",
		},
		Tracing: *tracing,
		Server:  ServerConfig{Addr: ":9090"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Data.Edges == "" {
		warnings = append(warnings, "data.edges is empty; commands need --edges")
	}

	if c.Graph.URI != "" && c.Graph.Username != "" && c.Graph.Password == "" {
		warnings = append(warnings, fmt.Sprintf("graph store '%s' is configured but password is empty", c.Graph.URI))
	}

	if c.Vector.Port < 0 || c.Vector.Port > 65535 {
		warnings = append(warnings, fmt.Sprintf("vector port %d is outside [0, 65535]", c.Vector.Port))
	}

	// Permutation p-values cannot go below 1/(N+1)
	if n := c.Analysis.Homophily.Permutations; n > 0 && n < 100 {
		warnings = append(warnings, fmt.Sprintf("homophily permutations %d gives p-values no smaller than %.3f", n, 1/float64(n+1)))
	}

	if c.Analysis.Top < 0 {
		warnings = append(warnings, fmt.Sprintf("analysis top %d is negative; all rows will be shown", c.Analysis.Top))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("log level '%s' is unknown; using info", c.Log.Level))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json", "logfmt":
	default:
		warnings = append(warnings, fmt.Sprintf("log format '%s' is unknown; using text", c.Log.Format))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment. An empty path
// loads the defaults with environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override
// keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data.edges", d.Data.Edges)
	v.SetDefault("data.characters", d.Data.Characters)
	v.SetDefault("data.name_column", d.Data.NameColumn)
	v.SetDefault("data.columns.source", d.Data.Columns.Source)
	v.SetDefault("data.columns.target", d.Data.Columns.Target)
	v.SetDefault("data.columns.weight", d.Data.Columns.Weight)
	v.SetDefault("data.columns.section", d.Data.Columns.Section)
	v.SetDefault("data.attributes", d.Data.Attributes)

	a := d.Analysis
	v.SetDefault("analysis.pagerank.max_iterations", a.PageRank.MaxIterations)
	v.SetDefault("analysis.pagerank.damping", a.PageRank.DampingFactor)
	v.SetDefault("analysis.pagerank.tolerance", a.PageRank.Tolerance)
	v.SetDefault("analysis.pagerank.weighted", a.PageRank.Weighted)
	v.SetDefault("analysis.hits.max_iterations", a.HITS.MaxIterations)
	v.SetDefault("analysis.hits.tolerance", a.HITS.Tolerance)
	v.SetDefault("analysis.hits.weighted", a.HITS.Weighted)
	v.SetDefault("analysis.eigenvector.max_iterations", a.Eigenvector.MaxIterations)
	v.SetDefault("analysis.eigenvector.tolerance", a.Eigenvector.Tolerance)
	v.SetDefault("analysis.community.resolution", a.Community.Resolution)
	v.SetDefault("analysis.community.k", a.Community.K)
	v.SetDefault("analysis.community.max_iterations", a.Community.MaxIterations)
	v.SetDefault("analysis.community.seed", a.Community.Seed)
	v.SetDefault("analysis.homophily.permutations", a.Homophily.Permutations)
	v.SetDefault("analysis.homophily.seed", a.Homophily.Seed)
	v.SetDefault("analysis.bridges.reciprocal", a.Bridges.Reciprocal)
	v.SetDefault("analysis.clique_mode", string(a.CliqueMode))
	v.SetDefault("analysis.ego.radius", a.Ego.Radius)
	v.SetDefault("analysis.ego.mode", float64(a.Ego.Mode))
	v.SetDefault("analysis.ego.min_weight", a.Ego.MinWeight)
	v.SetDefault("analysis.progression.metric", a.Progression.Metric)
	v.SetDefault("analysis.top", a.Top)

	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.username", d.Graph.Username)
	v.SetDefault("graph.password", d.Graph.Password)
	v.SetDefault("graph.database", d.Graph.Database)
	v.SetDefault("vector.host", d.Vector.Host)
	v.SetDefault("vector.port", d.Vector.Port)
	v.SetDefault("vector.collection", d.Vector.Collection)
	v.SetDefault("temporal.host", d.Temporal.Host)
	v.SetDefault("temporal.namespace", d.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", d.Temporal.TaskQueue)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.service_version", d.Tracing.ServiceVersion)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
