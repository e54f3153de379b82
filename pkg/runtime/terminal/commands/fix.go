package commands

import (
	"fmt"

	"github.com/de-tools/autofixer/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type FixCmd struct {
	benchmark  bool
	apply      bool
	controller ControllerProvider
	reporter   *export.Reporter
}

func NewFixCmd(controller ControllerProvider, reporter *export.Reporter) *cobra.Command {
	fc := &FixCmd{controller: controller, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "fix <issue-id>",
		Short: "Generate a fix proposal for a detected issue",
		Args:  cobra.ExactArgs(1),
		RunE:  fc.run,
	}

	cmd.Flags().BoolVar(&fc.benchmark, "benchmark", false, "Benchmark the proposal before and after")
	cmd.Flags().BoolVar(&fc.apply, "apply", false, "Apply the proposal and diagnose again")

	return cmd
}

func (fc *FixCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	issueID := args[0]

	ctrl, err := fc.controller(ctx)
	if err != nil {
		return err
	}

	if _, err := ctrl.Diagnose(ctx); err != nil {
		return fmt.Errorf("failed to diagnose: %w", err)
	}

	proposal, err := ctrl.RequestFix(ctx, issueID)
	if err != nil {
		return fmt.Errorf("failed to generate fix for %s: %w", issueID, err)
	}
	if err := fc.reporter.Proposal(proposal); err != nil {
		return err
	}

	if fc.benchmark {
		result, err := ctrl.Benchmark(ctx, proposal)
		if err != nil {
			return fmt.Errorf("failed to benchmark fix for %s: %w", issueID, err)
		}
		if err := fc.reporter.Benchmark(result); err != nil {
			return err
		}
	}

	if !fc.apply {
		return nil
	}

	result, err := ctrl.ApplyFix(ctx, issueID, proposal.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to apply fix for %s: %w", issueID, err)
	}
	if err := fc.reporter.ApplyResult(result); err != nil {
		return err
	}
	if !result.Succeeded() {
		return fmt.Errorf("fix for %s was not applied: %s", issueID, result.Message)
	}

	issues, err := ctrl.Diagnose(ctx)
	if err != nil {
		return fmt.Errorf("failed to diagnose after apply: %w", err)
	}
	return fc.reporter.Issues(issues)
}
