//go:build !lambda

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries the state shared by every command after PersistentPreRunE.
type app struct {
	configPath string
	verbose    bool

	cfg    *Config
	logger *zap.Logger
}

// sourceFlags selects the power sources for power and curve.
type sourceFlags struct {
	sources    []string
	laserheads []string
	gadget     string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.sources, "source", nil, `explicit source "[name=]max:min:modifier", repeatable, engaged in order`)
	cmd.Flags().StringArrayVar(&f.laserheads, "laserhead", nil, `laserhead from merged data "Name[=Module,!DisabledModule]", repeatable`)
	cmd.Flags().StringVar(&f.gadget, "gadget", "", "gadget placed on the rock (with --laserhead)")
}

// parseSource reads "[name=]max:min:modifier".
func parseSource(s string) (PowerSource, error) {
	var src PowerSource
	if name, rest, ok := strings.Cut(s, "="); ok {
		src.Name = strings.TrimSpace(name)
		s = rest
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return PowerSource{}, fmt.Errorf("source %q: want max:min:modifier", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return PowerSource{}, fmt.Errorf("source %q: %w", s, err)
		}
		vals[i] = v
	}
	src.MaxPower, src.MinPower, src.ResistanceModifier = vals[0], vals[1], vals[2]
	return src, nil
}

// parseLaserSelection reads "Name[=Module,!DisabledModule]".
func parseLaserSelection(s string) LaserSelection {
	name, mods, _ := strings.Cut(s, "=")
	sel := LaserSelection{Laserhead: strings.TrimSpace(name)}
	for _, m := range strings.Split(mods, ",") {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if strings.HasPrefix(m, "!") {
			m = strings.TrimSpace(m[1:])
			sel.Disabled = append(sel.Disabled, m)
		}
		sel.Modules = append(sel.Modules, m)
	}
	return sel
}

func (a *app) resolveSources(f *sourceFlags) ([]PowerSource, error) {
	if len(f.sources) > 0 && len(f.laserheads) > 0 {
		return nil, errors.New("use either --source or --laserhead, not both")
	}
	if len(f.laserheads) == 0 {
		sources := make([]PowerSource, 0, len(f.sources))
		for _, s := range f.sources {
			src, err := parseSource(s)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
		return sources, nil
	}

	cat, err := LoadCatalog(a.cfg.DataDir, a.cfg.Categories)
	if err != nil {
		return nil, err
	}
	sels := make([]LaserSelection, 0, len(f.laserheads))
	for _, s := range f.laserheads {
		sels = append(sels, parseLaserSelection(s))
	}
	sources, err := SourcesFromCatalog(cat, sels, f.gadget)
	if err != nil {
		return nil, err
	}
	for _, s := range sources {
		a.logger.Debug("resolved source",
			zap.String("name", s.Name),
			zap.Float64("max_power", s.MaxPower),
			zap.Float64("min_power", s.MinPower),
			zap.Float64("resistance_modifier", s.ResistanceModifier))
	}
	return sources, nil
}

func (a *app) buildLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(a.cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	zc.Level = level
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "laser-power-calculator",
		Short: "Mining laser power allocation and UEX item-data tooling",
		Long: `Computes the share of combined laser power needed to break a rock,
engaging laserheads in order until the power fits, and maintains the
merged laserhead/module/gadget data the calculation reads.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := a.buildLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "laser-power.yaml", "config file (missing file uses defaults)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.powerCmd(),
		a.curveCmd(),
		a.fetchCmd(),
		a.mergeCmd(),
		a.tierCmd(),
	)
	return root
}

func (a *app) powerCmd() *cobra.Command {
	var (
		rock    RockProfile
		sf      sourceFlags
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Power fraction needed to break a rock",
		Long: `Engages sources in the given order until the required power is at most
100% of their combined max power. A result above 100% means even every
source together cannot break the rock.

Examples:
  laser-power-calculator power --mass 10000 --resistance 20 \
    --source 4080:340:0.8 --source 3080:240:0.9 --source 2080:140:1.2
  laser-power-calculator power --mass 8000 --resistance 35 \
    --laserhead "Helix II=Rieger-C3 Module,Focus III Module" --gadget Sabir`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.resolveSources(&sf)
			if err != nil {
				return err
			}
			alloc, err := a.cfg.Allocator().Allocate(rock, sources)
			if err != nil {
				return err
			}
			a.logger.Debug("allocation",
				zap.Float64("fraction", alloc.Fraction),
				zap.Int("engaged", alloc.Engaged),
				zap.Bool("feasible", alloc.Feasible))
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), struct {
					Rock       RockProfile   `json:"rock"`
					Sources    []PowerSource `json:"sources"`
					Allocation Allocation    `json:"allocation"`
				}{rock, sources, alloc})
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), FormatAllocation(alloc, sources))
			return err
		},
	}
	cmd.Flags().Float64Var(&rock.Mass, "mass", 0, "rock mass")
	cmd.Flags().Float64Var(&rock.ResistancePercentage, "resistance", 0, "rock resistance in percent")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	sf.register(cmd)
	_ = cmd.MarkFlagRequired("mass")
	return cmd
}

func (a *app) curveCmd() *cobra.Command {
	var (
		sf      sourceFlags
		step    float64
		every   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Breakable mass of the combined sources across rock resistance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.resolveSources(&sf)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return ErrInsufficientSources
			}
			for i := range sources {
				if err := checkSource(i, &sources[i]); err != nil {
					return err
				}
			}
			if step == 0 {
				step = a.cfg.Mining.CurveStep
			}
			if step < 0 || step > 100 {
				return fmt.Errorf("step must be in (0, 100], got %v", step)
			}
			points := BreakabilityCurve(sources, a.cfg.Mining.BreakabilityFactor, step)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), points)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), FormatCurve(points, every))
			return err
		},
	}
	cmd.Flags().Float64Var(&step, "step", 0, "resistance step in percent (default from config)")
	cmd.Flags().IntVar(&every, "every", 50, "print every nth point")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	sf.register(cmd)
	return cmd
}

func (a *app) fetchCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download items and item attributes for every category from UEX",
		Long: `Fetches /items and /items_attributes for each configured category and
writes <category>.json and <category>_attributes.json into the data dir.
The token comes from --token, UEX_TOKEN, the config file, or one line on stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uex := a.cfg.UEX
			if token != "" {
				uex.Token = token
			}
			if uex.Token == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				uex.Token = strings.TrimSpace(line)
			}
			f, err := NewFetcher(uex, a.logger)
			if err != nil {
				return err
			}
			saved, err := f.FetchAll(cmd.Context(), a.cfg.Categories, a.cfg.DataDir)
			for _, c := range saved {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s.json and %s_attributes.json\n", c.Name, c.Name)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "UEX API bearer token")
	return cmd
}

func (a *app) mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Join fetched items with their attributes into <category>_merged.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := NewMerger(a.cfg.DataDir, a.logger).MergeAll(a.cfg.Categories)
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "Merged %s (%d items) saved to %s\n", s.Category, s.Items, s.Path)
			}
			return err
		},
	}
}

func (a *app) tierCmd() *cobra.Command {
	tier := &cobra.Command{
		Use:   "tier",
		Short: "Edit the Tier attribute of modules in modules_merged.json",
	}

	set := &cobra.Command{
		Use:   "set <module name> <tier>",
		Short: "Add or update the tier of one module",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("tier must be a number, got %q", args[1])
			}
			change, err := NewTierStore(a.cfg.DataDir, a.logger).SetTier(args[0], n)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), FormatTierChanges([]TierChange{change}, nil))
			return err
		},
	}

	bulk := &cobra.Command{
		Use:   "bulk",
		Short: "Apply the tiers mapping from the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Tiers) == 0 {
				return errors.New("config has no tiers mapping")
			}
			changes, missing, err := NewTierStore(a.cfg.DataDir, a.logger).BulkSetTiers(a.cfg.Tiers)
			if err != nil {
				return err
			}
			out := FormatTierChanges(changes, missing)
			if len(changes) > 0 {
				out += fmt.Sprintf("\nSuccessfully updated %d module(s)\n", len(changes))
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	var jsonOut bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List passive modules and their tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := NewTierStore(a.cfg.DataDir, a.logger).ListPassive()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), FormatTierList(entries))
			return err
		},
	}
	list.Flags().BoolVar(&jsonOut, "json", false, "print JSON")

	tier.AddCommand(set, bulk, list)
	return tier
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
