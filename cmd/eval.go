package cmd

import (
	"context"
	"fmt"
	"os"

	"graddirector/pkg/eval"
	"graddirector/pkg/llm"
	"graddirector/pkg/monitor"

	"github.com/spf13/cobra"
)

type evalOptions struct {
	dataset string
	maxRows int
	out     string
}

// NewEvalCmd creates the evaluation command.
func NewEvalCmd(opts *globalOptions) *cobra.Command {
	eo := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Replay the evaluation dataset and grade the answers",
		Long: `Runs every user_question of the dataset through the assistant in a fresh conversation
and asks the grader model whether the answer covers the key points of gpd_answer.
Grading is model based and varies between runs; read the justifications.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), opts, eo)
		},
	}
	cmd.Flags().StringVar(&eo.dataset, "dataset", "", "xlsx or csv dataset (default from config or EVAL_DATASET_PATH)")
	cmd.Flags().IntVar(&eo.maxRows, "max-rows", 0, "maximum rows to replay (default eval_max_rows)")
	cmd.Flags().StringVar(&eo.out, "out", "", "write the JSON report to this file")
	return cmd
}

func runEval(ctx context.Context, opts *globalOptions, eo *evalOptions) error {
	sys := opts.system()
	monitor.SetupSlog(sys.LogLevel, os.Stderr)

	a, err := bootstrap(ctx, opts, sys, false)
	if err != nil {
		return err
	}
	defer a.close()

	path := eo.dataset
	if path == "" {
		path = a.cfg.Eval.Path
	}
	maxRows := eo.maxRows
	if maxRows <= 0 {
		maxRows = a.cfg.Eval.MaxRows
	}
	if maxRows <= 0 {
		maxRows = sys.EvalMaxRows
	}

	cases, err := eval.LoadDataset(path, maxRows)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		fmt.Printf("No evaluation cases in %s, skipping.\n", path)
		return nil
	}

	grader, err := newGraderClient(a)
	if err != nil {
		return err
	}

	h := eval.NewHarness(a.engine, eval.NewGrader(grader))
	h.OnCase = func(r eval.CaseResult) {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Printf("[%s] row %d (%s)\n", status, r.Row, r.Duration.Round(1e6))
	}
	rep := h.Run(ctx, cases)
	fmt.Println(rep.Summary())

	if eo.out != "" {
		f, err := os.Create(eo.out)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		if err := rep.WriteJSON(f); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if !rep.OK() {
		return fmt.Errorf("evaluation failed: %d of %d cases", rep.Failed, len(rep.Cases))
	}
	return nil
}

// newGraderClient builds the grader from the "grader" groups, or from the
// assistant groups, always at temperature 0.
func newGraderClient(a *app) (llm.LLMClient, error) {
	raw := a.cfg.Grader
	if len(raw) == 0 {
		raw = a.cfg.LLM
	}
	raw, err := llm.WithTemperature(raw, 0)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewFromConfig(raw, a.sys)
	if err != nil {
		return nil, fmt.Errorf("failed to init grader: %w", err)
	}
	return client, nil
}
