package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChamsBouzaiene/parsegen/internal/engine"
	"github.com/ChamsBouzaiene/parsegen/internal/watch"
)

// errRunFailed marks a run that ended without a passing parser.
var errRunFailed = errors.New("parser generation failed")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	projectDir  string
	dataRoot    string
	outputDir   string
	apiKey      string
	logLevel    string
	logFormat   string
	maxAttempts int
	execute     bool
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "parsegen",
		Short: "Generate bank statement parsers with a plan/generate/test/reflect loop",
		Long: `parsegen reads a sample statement and its expected CSV, asks an LLM for a
parser, checks the result and feeds failures back until a parser passes or the
attempt budget runs out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.projectDir, "project", ".", "Project directory holding parsegen.yaml")
	pf.StringVar(&g.dataRoot, "data-root", "", "Directory with one sub-directory of samples per target")
	pf.StringVar(&g.outputDir, "output-dir", "", "Directory receiving generated parsers")
	pf.StringVar(&g.apiKey, "api-key", "", "API key for the selected LLM provider")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")
	pf.IntVar(&g.maxAttempts, "max-attempts", 0, "Generate/test cycles before giving up (0 = project setting)")
	pf.BoolVar(&g.execute, "execute", false, "Run candidates against the sample and compare with the expected CSV")

	root.AddCommand(newRunCmd(&g), newListCmd(&g), newWatchCmd(&g), newHistoryCmd(&g))
	return root
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var target string
	var all bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a parser for one target, or for every target with --all",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (target == "") == !all {
				return errors.New("exactly one of --target or --all is required")
			}
			ctx := cmd.Context()

			env, err := prepareEnv(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if !all {
				res, err := env.runTarget(ctx, target)
				if err != nil {
					return err
				}
				report(cmd.OutOrStdout(), res, env.Settings.MaxAttempts)
				if !res.Success {
					return errRunFailed
				}
				return nil
			}
			return runAll(ctx, env, cmd)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target bank id (directory under the data root)")
	cmd.Flags().BoolVar(&all, "all", false, "Process every target under the data root")
	return cmd
}

func runAll(ctx context.Context, env *appEnv, cmd *cobra.Command) error {
	targets, err := env.Layout.ListTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets with sample inputs under %s", env.Layout.DataRoot)
	}

	var mu sync.Mutex
	results := make(map[string]engine.Result, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(env.Settings.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			res, err := env.runTarget(gctx, t)
			if err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
			mu.Lock()
			results[t] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, t := range targets {
		res := results[t]
		report(out, res, env.Settings.MaxAttempts)
		if !res.Success {
			failed++
		}
	}
	fmt.Fprintf(out, "\n%d/%d targets succeeded\n", len(targets)-failed, len(targets))
	if failed > 0 {
		return errRunFailed
	}
	return nil
}

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List targets that have sample inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(g)
			if err != nil {
				return err
			}
			layout := layoutFor(settings)
			targets, err := layout.ListTargets()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tDOCUMENT\tEXPECTED")
			for _, t := range targets {
				in, err := layout.Resolve(t)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t, filepath.Base(in.Document), filepath.Base(in.Expected))
			}
			return w.Flush()
		},
	}
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate a target's parser whenever its samples change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := prepareEnv(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			dir := filepath.Join(env.Layout.DataRoot, target)
			w, err := watch.New(dir, watch.Options{Logger: env.Logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rerun := func(ctx context.Context, _ []string) {
				res, err := env.runTarget(ctx, target)
				if err != nil {
					env.Logger.Error("run failed", "target", target, "error", err)
					return
				}
				report(out, res, env.Settings.MaxAttempts)
				env.flushMetrics()
			}

			rerun(ctx, nil)
			fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", dir)
			return w.Run(ctx, rerun)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target bank id")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var target, runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs, or the attempts of one run with --run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			settings, err := loadSettings(g)
			if err != nil {
				return err
			}
			store, err := openHistory(ctx, settings)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("run history is disabled (set history_db in parsegen.yaml)")
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if runID != "" {
				attempts, err := store.Attempts(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ATTEMPT\tVERDICT\tCODE\tFEEDBACK")
				for _, a := range attempts {
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", a.Attempt, a.Verdict, a.CodeLength, engine.Truncate(a.Feedback, 80))
				}
				return w.Flush()
			}

			runs, err := store.ListRuns(ctx, target, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "RUN\tTARGET\tSTARTED\tATTEMPTS\tRESULT")
			for _, r := range runs {
				result := "failed"
				switch {
				case r.FinishedAt.IsZero():
					result = "incomplete"
				case r.Success:
					result = "success"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.RunID, r.Target, r.StartedAt.Format(time.DateTime), r.Attempts, result)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Only show runs for this target")
	cmd.Flags().StringVar(&runID, "run", "", "Show the attempts of this run")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show (0 = all)")
	return cmd
}
