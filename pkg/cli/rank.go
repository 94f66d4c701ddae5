package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/mchmarny/credrank/pkg/config"
	"github.com/mchmarny/credrank/pkg/decomposition"
	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/mchmarny/credrank/pkg/logging"
	"github.com/mchmarny/credrank/pkg/pagerank"
	"github.com/mchmarny/credrank/pkg/weights"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	validateEpsilonDefault = 1e-6
	scaleTotalDefault      = 1000

	graphFlagName         = "graph"
	configFlagName        = "config"
	alphaFlagName         = "alpha"
	seedFlagName          = "seed"
	maxIterationsFlagName = "max-iterations"
	topFlagName           = "top"
	prefixFlagName        = "prefix"
	totalFlagName         = "total"
	connectionsFlagName   = "connections"
	validateFlagName      = "validate"
	verboseFlagName       = "verbose"
)

func newConfigFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    configFlagName,
		Aliases: []string{"c"},
		Usage:   fmt.Sprintf("Path to the config file (optional, defaults to $HOME/.%s/%s when present)", appName, config.FileName),
	}
}

func newRankCmd() *cli.Command {
	return &cli.Command{
		Name:    "rank",
		Aliases: []string{"r"},
		Usage:   "Computes credit scores for every node of a graph",
		Action:  cmdRank,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     graphFlagName,
				Aliases:  []string{"g"},
				Usage:    "Path to the graph document (YAML or JSON)",
				Required: true,
			},
			newConfigFileFlag(),
			&cli.FloatFlag{
				Name:  alphaFlagName,
				Usage: "Teleport probability in [0, 1] (overrides config)",
			},
			&cli.StringFlag{
				Name:  seedFlagName,
				Usage: fmt.Sprintf("Seed distribution [%s, %s] (overrides config)", pagerank.SeedUniform, pagerank.SeedWeights),
			},
			&cli.IntFlag{
				Name:  maxIterationsFlagName,
				Usage: "Maximum number of power iterations (overrides config)",
			},
			&cli.IntFlag{
				Name:  topFlagName,
				Usage: "Limits number of nodes returned, 0 returns all",
			},
			&cli.StringFlag{
				Name:  prefixFlagName,
				Usage: "Slash separated node prefix (e.g. github/user) to filter and scale scores by",
			},
			&cli.FloatFlag{
				Name:  totalFlagName,
				Usage: "Total score of the nodes under --prefix",
				Value: scaleTotalDefault,
			},
			&cli.BoolFlag{
				Name:  connectionsFlagName,
				Usage: "Includes the per node score decomposition",
			},
			&cli.BoolFlag{
				Name:  validateFlagName,
				Usage: "Fails when the score decomposition is inconsistent (requires alpha 0)",
			},
			&cli.BoolFlag{
				Name:  verboseFlagName,
				Usage: "Logs solver progress and stage timing",
			},
		},
	}
}

// RankReport is the output of the rank command.
type RankReport struct {
	Converged        bool         `json:"converged" yaml:"converged"`
	Iterations       int          `json:"iterations" yaml:"iterations"`
	ConvergenceDelta float64      `json:"convergenceDelta" yaml:"convergenceDelta"`
	Nodes            []RankedNode `json:"nodes" yaml:"nodes"`
}

// RankedNode is a node and its score.
type RankedNode struct {
	Address     []string           `json:"address" yaml:"address"`
	Score       float64            `json:"score" yaml:"score"`
	Teleport    float64            `json:"teleport,omitempty" yaml:"teleport,omitempty"`
	Connections []RankedConnection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// RankedConnection is the part of a node's score that arrived over one connection.
type RankedConnection struct {
	Kind   string   `json:"kind" yaml:"kind"`
	Edge   []string `json:"edge,omitempty" yaml:"edge,omitempty"`
	Source []string `json:"source" yaml:"source"`
	Weight float64  `json:"weight" yaml:"weight"`
	Score  float64  `json:"score" yaml:"score"`
}

func cmdRank(ctx context.Context, cmd *cli.Command) error {
	prefix, err := parsePrefix(cmd.String(prefixFlagName))
	if err != nil {
		return fmt.Errorf("invalid prefix: %w", err)
	}

	var (
		g   *graph.Graph
		cfg *config.Config
		eg  errgroup.Group
	)
	eg.Go(func() (err error) {
		g, err = ReadGraph(cmd.String(graphFlagName))
		return err
	})
	eg.Go(func() (err error) {
		cfg, err = loadConfig(cmd.String(configFlagName))
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	slog.Debug("graph loaded", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}

	w, err := cfg.BuildWeights()
	if err != nil {
		return err
	}
	ev, err := weights.NewEvaluator(w)
	if err != nil {
		return fmt.Errorf("creating weight evaluator: %w", err)
	}

	opts := cfg.Options()
	if cmd.Bool(verboseFlagName) {
		opts.Verbose = true
	}
	if opts.Verbose {
		opts.Logger = slog.Default()
		opts.Reporter = logging.NewLoggingTaskReporter(slog.Default(), appName)
	}

	res, err := pagerank.Run(ctx, g, ev, opts)
	if err != nil {
		return fmt.Errorf("ranking graph: %w", err)
	}
	if !res.Converged {
		slog.Warn("scores did not converge",
			"iterations", res.Iterations,
			"delta", res.ConvergenceDelta)
	}

	// connection scores only add up to the node score without teleport
	if cmd.Bool(validateFlagName) {
		if opts.Alpha != 0 {
			return fmt.Errorf("--%s requires alpha 0, got %v", validateFlagName, opts.Alpha)
		}
		if err := decomposition.Validate(res.Decomposition, validateEpsilonDefault); err != nil {
			return fmt.Errorf("invalid decomposition: %w", err)
		}
	}

	scores := res.Scores
	if prefix != "" {
		if scores, err = res.Scaled(cmd.Float(totalFlagName), prefix); err != nil {
			return err
		}
	}

	report := newRankReport(res, scores, prefix, opts.Alpha, int(cmd.Int(topFlagName)), cmd.Bool(connectionsFlagName))
	if err := encode(cmd, report); err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	return nil
}

func applyOverrides(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet(alphaFlagName) {
		cfg.Alpha = cmd.Float(alphaFlagName)
	}
	if cmd.IsSet(seedFlagName) {
		cfg.Seed = cmd.String(seedFlagName)
	}
	if cmd.IsSet(maxIterationsFlagName) {
		cfg.MaxIterations = int(cmd.Int(maxIterationsFlagName))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// loadConfig reads path, or the config in the home dir when path is empty,
// falling back to defaults when neither exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir, using default config", "error", err)
		return config.Default(), nil
	}

	path = filepath.Join(home, "."+appName, config.FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

func newRankReport(res *pagerank.Result, scores map[graph.NodeAddress]float64, prefix graph.NodeAddress, alpha float64, top int, withConnections bool) *RankReport {
	report := &RankReport{
		Converged:        res.Converged,
		Iterations:       res.Iterations,
		ConvergenceDelta: res.ConvergenceDelta,
		Nodes:            make([]RankedNode, 0),
	}

	index := make(map[graph.NodeAddress]int, len(res.NodeOrder))
	nodes := make([]graph.NodeAddress, 0, len(res.NodeOrder))
	for i, n := range res.NodeOrder {
		index[n] = i
		if n.HasPrefix(prefix) {
			nodes = append(nodes, n)
		}
	}
	slices.SortStableFunc(nodes, func(a, b graph.NodeAddress) int {
		return cmp.Compare(scores[b], scores[a])
	})
	if top > 0 && top < len(nodes) {
		nodes = nodes[:top]
	}

	// A node's score is (1-alpha) times the flow over its connections plus
	// alpha times its seed share, up to the convergence delta. Both parts are
	// rescaled with the node score.
	for _, n := range nodes {
		rn := RankedNode{Address: n.Parts(), Score: scores[n]}
		if withConnections {
			nd := res.Decomposition[n]
			factor := 1.0
			if nd.Score != 0 {
				factor = scores[n] / nd.Score
			}
			if alpha != 0 {
				rn.Teleport = alpha * res.Seed[index[n]] * factor
			}
			for _, sc := range nd.ScoredConnections {
				rc := RankedConnection{
					Kind:   string(sc.Connection.Adjacency.Kind()),
					Source: sc.Source.Parts(),
					Weight: sc.Connection.Weight,
					Score:  (1 - alpha) * sc.ConnectionScore * factor,
				}
				if e, ok := sc.Connection.Adjacency.Edge(); ok {
					rc.Edge = e.Address.Parts()
				}
				rn.Connections = append(rn.Connections, rc)
			}
		}
		report.Nodes = append(report.Nodes, rn)
	}
	return report
}
