package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// checkCmd builds the rule table once and prints it, without serving.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compile the stored definitions and print the rule table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, cleanup, err := InitializeMockApp(cfg)
		if err != nil {
			return fmt.Errorf("assemble mock server: %w", err)
		}
		defer cleanup()

		res, err := app.RuleService.Reload(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(app.RuleService.DebugTable(cmd.Context())); err != nil {
			return err
		}
		if len(res.Failures) > 0 {
			return fmt.Errorf("%d definition(s) failed to compile", len(res.Failures))
		}
		return nil
	},
}
