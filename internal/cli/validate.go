package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"safestep/internal/intake/processor"
	"safestep/internal/intake/validation"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	src := &ruleSource{}
	cmd := &cobra.Command{
		Use:   "validate <json>",
		Short: "Validate one record body against the rules",
		Long: `Parse a record body the way the consumer does and print the per-field
validation report.

Exit codes:
  0 - Record is valid
  1 - Record is malformed or fails validation
  2 - Command error

Examples:
  intake validate '{"greenId":"g1","f_name":"Ann","email":"ann@example.com"}'
  intake validate --identity phone --format json '{"greenId":"g1","phone":"5551234"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := src.load()
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), rootOpts.Format, rules, []byte(args[0]))
		},
	}
	src.bind(cmd)
	return cmd
}

func runValidate(w io.Writer, format string, rules validation.RuleSet, body []byte) error {
	fields, err := processor.ParseRecord(body)
	if err != nil {
		return WrapExitError(ExitFailure, "record rejected", err)
	}

	report := validation.NewValidator(rules).Validate(fields)
	if err := writeOutput(w, format, report, func(w io.Writer) {
		if report.Passed {
			fmt.Fprintln(w, "✓ record valid")
			return
		}
		fmt.Fprintln(w, "✗ record invalid")
		for _, name := range report.FailedFields() {
			for _, msg := range report.Fields[name].Errors {
				fmt.Fprintf(w, "  %s: %s\n", name, msg)
			}
		}
	}); err != nil {
		return err
	}

	if !report.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %s", report.Summary()))
	}
	return nil
}
