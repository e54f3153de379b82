package commands

import (
	"context"
	"fmt"

	"github.com/de-tools/autofixer/pkg/runtime/terminal/export"
	"github.com/de-tools/autofixer/pkg/services/lifecycle"
	"github.com/spf13/cobra"
)

// ControllerProvider resolves the controller once the root command's flags are parsed.
type ControllerProvider func(ctx context.Context) (lifecycle.Controller, error)

type DiagnoseCmd struct {
	controller ControllerProvider
	reporter   *export.Reporter
}

func NewDiagnoseCmd(controller ControllerProvider, reporter *export.Reporter) *cobra.Command {
	dc := &DiagnoseCmd{controller: controller, reporter: reporter}
	return &cobra.Command{
		Use:   "diagnose",
		Short: "List the issues the backend currently detects",
		Args:  cobra.NoArgs,
		RunE:  dc.run,
	}
}

func (dc *DiagnoseCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	ctrl, err := dc.controller(ctx)
	if err != nil {
		return err
	}

	issues, err := ctrl.Diagnose(ctx)
	if err != nil {
		return fmt.Errorf("failed to diagnose: %w", err)
	}

	return dc.reporter.Issues(issues)
}
