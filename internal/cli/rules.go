package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"safestep/internal/intake/validation"
)

// ruleSource selects the rule set a command runs against. Flags default to
// the environment so the CLI sees what serve would.
type ruleSource struct {
	File     string
	Identity string
}

func (r *ruleSource) bind(cmd *cobra.Command) {
	identity := os.Getenv("INTAKE_IDENTITY_ATTRIBUTE")
	if identity == "" {
		identity = "email"
	}
	cmd.Flags().StringVar(&r.File, "file", os.Getenv("INTAKE_RULES_FILE"), "rules YAML file (default: embedded rules for --identity)")
	cmd.Flags().StringVar(&r.Identity, "identity", identity, "identity attribute (email|phone)")
}

func (r *ruleSource) load() (validation.RuleSet, error) {
	rules, err := validation.Resolve(r.File, r.Identity)
	if err != nil {
		return validation.RuleSet{}, WrapExitError(ExitFailure, "invalid rules", err)
	}
	return rules, nil
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect input validation rules",
	}
	cmd.AddCommand(newRulesCheckCommand(rootOpts))
	return cmd
}

func newRulesCheckCommand(rootOpts *RootOptions) *cobra.Command {
	src := &ruleSource{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load a rule set and print it",
		Long: `Load, compile and print a rule set. Exits 1 when the rules are invalid
(duplicate names, negative or inverted lengths, bad regex).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := src.load()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, rules.Rules(), func(w io.Writer) {
				fmt.Fprintf(w, "%d rule(s) OK\n", rules.Len())
				for _, rule := range rules.Rules() {
					fmt.Fprintf(w, "  %s\n", describeRule(rule))
				}
			})
		},
	}
	src.bind(cmd)
	return cmd
}

func describeRule(rule validation.Rule) string {
	parts := []string{rule.Name}
	if rule.Required {
		parts = append(parts, "required")
	} else {
		parts = append(parts, "optional")
	}
	if rule.MinLength != nil {
		parts = append(parts, fmt.Sprintf("min=%d", *rule.MinLength))
	}
	if rule.MaxLength != nil {
		parts = append(parts, fmt.Sprintf("max=%d", *rule.MaxLength))
	}
	if rule.Regex != "" {
		parts = append(parts, "regex="+rule.Regex)
	}
	return strings.Join(parts, " ")
}
