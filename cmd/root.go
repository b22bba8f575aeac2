package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/colsim/colsim/sim"
	"github.com/colsim/colsim/sim/coupling"
	"github.com/colsim/colsim/sim/process"
	"github.com/colsim/colsim/sim/record"
	"github.com/colsim/colsim/sim/shower"
	"github.com/colsim/colsim/sim/store"
)

// progressInterval spaces out progress lines in long loops.
const progressInterval = 2 * time.Second

var (
	configPath  string // YAML run configuration
	seed        int64  // master seed for every random stream
	logLevel    string // log verbosity level
	processName string // hard process
	evaluations int64  // integration evaluations
	workers     int    // parallel integration workers
	events      int    // unweighted events to generate
	evolutions  int    // shower evolutions to run
	dbPath      string // SQLite database for run records
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "colsim",
	Short: "Monte-Carlo event simulator for particle collisions",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// xsecCmd integrates the cross section and generates unweighted events.
var xsecCmd = &cobra.Command{
	Use:   "xsec",
	Short: "Integrate a process cross section and generate unweighted events",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := resolveConfig(cmd)
		startTime := time.Now()

		run, err := runCrossSection(cmd.Context(), cfg)
		if err != nil {
			logrus.Fatalf("cross-section run failed: %v", err)
		}
		persist(cmd.Context(), cfg.Output.Database, run)
		printSummary(os.Stdout, run)

		logrus.Infof("Run %s complete in %s.", run.ID, time.Since(startTime).Round(time.Millisecond))
	},
}

// showerCmd runs Sudakov evolutions.
var showerCmd = &cobra.Command{
	Use:   "shower",
	Short: "Run parton-shower Sudakov evolutions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := resolveConfig(cmd)
		startTime := time.Now()

		run, err := runShower(cfg)
		if err != nil {
			logrus.Fatalf("shower run failed: %v", err)
		}
		persist(cmd.Context(), cfg.Output.Database, run)
		printSummary(os.Stdout, run)

		logrus.Infof("Run %s complete in %s.", run.ID, time.Since(startTime).Round(time.Millisecond))
	},
}

// runsCmd lists the runs stored in a database.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	Run: func(cmd *cobra.Command, args []string) {
		if dbPath == "" {
			logrus.Fatalf("--db is required")
		}
		s, err := store.NewStore(dbPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer s.Close()
		runs, err := s.ListRuns(cmd.Context())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printRuns(os.Stdout, runs)
	},
}

// resolveConfig loads the YAML config (or defaults) and applies flags the
// user set explicitly, so file values survive unset flags.
func resolveConfig(cmd *cobra.Command) *RunConfig {
	cfg := DefaultRunConfig()
	if configPath != "" {
		loaded, err := LoadRunConfig(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg = loaded
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

func applyFlagOverrides(cmd *cobra.Command, cfg *RunConfig) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("process") {
		cfg.Process.Name = processName
	}
	if flags.Changed("evaluations") {
		cfg.Integration.Evaluations = evaluations
	}
	if flags.Changed("workers") {
		cfg.Integration.Workers = workers
	}
	if flags.Changed("events") {
		cfg.Generation.Events = events
	}
	if flags.Changed("evolutions") {
		cfg.Shower.Evolutions = evolutions
	}
	if flags.Changed("db") {
		cfg.Output.Database = dbPath
	}
}

// runCrossSection integrates the configured process and, when events are
// requested, unweights against the integration's maximum weight.
func runCrossSection(ctx context.Context, cfg *RunConfig) (*record.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := process.New(cfg.Process.Name, cfg.processOptions())
	if err != nil {
		return nil, err
	}
	ps, err := process.NewPhaseSpace(p)
	if err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	run := record.NewRun(record.KindCrossSection, p.Name(), cfg.Seed)

	logrus.Infof("Integrating %s at √s=%g GeV with %s evaluations on %d worker(s)",
		p.Name(), cfg.Process.ECM, humanize.Comma(cfg.Integration.Evaluations), cfg.Integration.Workers)

	var res *sim.IntegrationResult
	if cfg.Integration.Workers == 1 {
		res, err = sim.Integrate(ps, p, rng.ForSubsystem(sim.SubsystemIntegration), cfg.integration())
	} else {
		res, err = sim.IntegrateParallel(ctx, ps, p, rng, cfg.integration(), cfg.Integration.Workers)
	}
	if err != nil {
		return nil, fmt.Errorf("integrating %s: %w", p.Name(), err)
	}
	run.Result = res
	logrus.Infof("σ = %.6g ± %.3g pb (%s valid, %s invalid samples)",
		res.Estimate, res.StandardError, humanize.Comma(res.Evaluations), humanize.Comma(res.InvalidSamples))

	if cfg.Generation.Events == 0 {
		return run, nil
	}
	gen, err := sim.NewEventGenerator(ps, p, rng.ForSubsystem(sim.SubsystemHitOrMiss), res.MaxWeight, cfg.generator())
	if err != nil {
		return nil, fmt.Errorf("event generator for %s: %w", p.Name(), err)
	}
	logrus.Infof("Generating %s events, expecting %.1f trials per event",
		humanize.Comma(int64(cfg.Generation.Events)), gen.ExpectedTrialsPerEvent(res.Estimate))

	progress := rate.Sometimes{Interval: progressInterval}
	total := humanize.Comma(int64(cfg.Generation.Events))
	err = gen.Generate(cfg.Generation.Events, func(ev sim.Event) error {
		if err := run.RecordEvent(ev); err != nil {
			return err
		}
		progress.Do(func() {
			logrus.Infof("generated %s/%s events", humanize.Comma(int64(len(run.Events))), total)
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generating %s events: %w", p.Name(), err)
	}
	stats := gen.Stats()
	logrus.Infof("Accepted %s of %s trials (%.4f), max weight ratio %.4f",
		humanize.Comma(stats.Accepted), humanize.Comma(stats.Trials), stats.AcceptanceRate(), stats.MaxRatio)
	return run, nil
}

// runShower evolves cfg.Shower.Evolutions independent quark lines from the
// initial scale down to the cutoff.
func runShower(cfg *RunConfig) (*record.Run, error) {
	alphas, err := coupling.NewAlphaS(cfg.couplingConfig())
	if err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	evolver, err := shower.NewEvolver(cfg.evolution(), alphas, shower.QuarkKernel{}, rng.ForSubsystem(sim.SubsystemShower))
	if err != nil {
		return nil, err
	}
	run := record.NewRun(record.KindShower, "", cfg.Seed)

	logrus.Infof("Evolving %s quark lines from %g GeV to %g GeV (α_over=%.4g)",
		humanize.Comma(int64(cfg.Shower.Evolutions)), cfg.Shower.InitialScale, cfg.Shower.Cutoff, evolver.AlphaOver())

	progress := rate.Sometimes{Interval: progressInterval}
	total := humanize.Comma(int64(cfg.Shower.Evolutions))
	for i := 0; i < cfg.Shower.Evolutions; i++ {
		h, err := evolver.Evolve()
		if err != nil {
			return nil, fmt.Errorf("evolution %d: %w", i, err)
		}
		run.RecordHistory(h)
		progress.Do(func() {
			logrus.Infof("finished %s/%s evolutions", humanize.Comma(int64(i+1)), total)
		})
	}
	return run, nil
}

// persist stores run when a database is configured.
func persist(ctx context.Context, path string, run *record.Run) {
	if path == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := store.NewStore(path)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	defer s.Close()
	if err := s.SaveRun(ctx, run); err != nil {
		logrus.Fatalf("saving run %s: %v", run.ID, err)
	}
	logrus.Infof("Saved run %s to %s", run.ID, path)
}

// printSummary writes the aggregate statistics of run to w.
func printSummary(w io.Writer, run *record.Run) {
	summary := record.Summarize(run)
	fmt.Fprintln(w, "=== Run Summary ===")
	fmt.Fprintf(w, "Run ID          : %s\n", run.ID)
	fmt.Fprintf(w, "Kind            : %s\n", run.Kind)
	fmt.Fprintf(w, "Seed            : %d\n", run.Seed)
	if run.Result != nil {
		fmt.Fprintf(w, "Process         : %s\n", run.Process)
		fmt.Fprintf(w, "Cross section   : %.6g ± %.3g pb\n", run.Result.Estimate, run.Result.StandardError)
		fmt.Fprintf(w, "Max weight      : %.6g\n", run.Result.MaxWeight)
		fmt.Fprintf(w, "Evaluations     : %s (%s invalid)\n",
			humanize.Comma(run.Result.Evaluations), humanize.Comma(run.Result.InvalidSamples))
	}
	if summary.Events > 0 {
		fmt.Fprintf(w, "Events          : %s\n", humanize.Comma(int64(summary.Events)))
		fmt.Fprintf(w, "Mean weight     : %.6g ± %.3g\n", summary.MeanEventWeight, summary.StdEventWeight)
		names := diagnosticNames(run.Process)
		for k, mean := range summary.DiagnosticMeans {
			label := fmt.Sprintf("diag[%d]", k)
			if k < len(names) {
				label = names[k]
			}
			fmt.Fprintf(w, "Mean %-11s: %.6g\n", label, mean)
		}
	}
	if summary.Histories > 0 {
		fmt.Fprintf(w, "Evolutions      : %s\n", humanize.Comma(int64(summary.Histories)))
		fmt.Fprintf(w, "Emissions       : %s (%.3f ± %.3f per line)\n",
			humanize.Comma(int64(summary.Emissions)), summary.MeanEmissions, summary.StdEmissions)
		fmt.Fprintf(w, "No emission     : %.4f\n", summary.ZeroEmissionFrac)
		fmt.Fprintf(w, "Hardest scale   : %.4g GeV (pT %.4g GeV)\n", summary.MeanFirstScale, summary.MeanFirstPT)
		for _, term := range []shower.Termination{shower.BelowCutoff, shower.NoRoot, shower.Unresolved, shower.Unphysical} {
			if n := summary.Terminations[term]; n > 0 {
				fmt.Fprintf(w, "Ended %-10s: %s\n", term, humanize.Comma(int64(n)))
			}
		}
	}
}

// diagnosticNames looks up the diagnostic labels of a registered process.
func diagnosticNames(name string) []string {
	if !process.ValidProcesses[name] {
		return nil
	}
	p, err := process.New(name, DefaultRunConfig().processOptions())
	if err != nil {
		return nil
	}
	return p.DiagnosticNames()
}

// printRuns writes one line per stored run to w.
func printRuns(w io.Writer, runs []store.RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs stored")
		return
	}
	for _, r := range runs {
		label := string(r.Kind)
		if r.Process != "" {
			label += "/" + r.Process
		}
		fmt.Fprintf(w, "%s  %-16s seed=%-6d events=%-8s histories=%-8s %s\n",
			r.ID, label, r.Seed, humanize.Comma(int64(r.Events)), humanize.Comma(int64(r.Histories)),
			humanize.Time(r.CreatedAt))
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database to store runs in (empty = do not store)")

	for _, c := range []*cobra.Command{xsecCmd, showerCmd} {
		c.Flags().StringVar(&configPath, "config", "", "YAML run configuration (defaults are used for missing keys)")
		c.Flags().Int64Var(&seed, "seed", 42, "Master seed for all random streams")
	}

	xsecCmd.Flags().StringVar(&processName, "process", "pp2zg2ll", "Hard process (ee2mumu, pp2zg2ll)")
	xsecCmd.Flags().Int64Var(&evaluations, "evaluations", 1_000_000, "Valid integrand evaluations")
	xsecCmd.Flags().IntVar(&workers, "workers", 1, "Parallel integration workers")
	xsecCmd.Flags().IntVar(&events, "events", 100, "Unweighted events to generate")

	showerCmd.Flags().IntVar(&evolutions, "evolutions", 1000, "Sudakov evolutions to run")

	rootCmd.AddCommand(xsecCmd)
	rootCmd.AddCommand(showerCmd)
	rootCmd.AddCommand(runsCmd)
}
