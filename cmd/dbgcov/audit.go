package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/dbgcov/internal/facts"
	"github.com/robert-at-pretension-io/dbgcov/internal/policy"
	"github.com/robert-at-pretension-io/dbgcov/internal/validator"
)

var (
	auditJSON    bool
	auditNoColor bool
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <regions>",
		Short: "Check a region stream for inconsistencies",
		Long: `Evaluate the audit rules over a region stream:

  inverted-range            a region begins on a later line than it ends
  definition-without-scope  a variable has definition regions but no scope
  definition-outside-scope  a definition region is not inside the variable's scope
  param-scope-mismatch      a parameter's definition and scope regions differ

Rule severities come from the audit.rules section of the config; "off"
disables a rule. Extra rules can be added with audit.policyDir.

The command fails when any error-severity violation is found.`,
		Args: cobra.ExactArgs(1),
		RunE: runAudit,
	}
	cmd.Flags().BoolVar(&auditJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&auditNoColor, "no-color", false, "Disable coloured output")
	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args[0])
	if err != nil {
		return err
	}

	tables, err := facts.LoadTables(args[0])
	if err != nil {
		return err
	}

	v, err := validator.New()
	if err != nil {
		return fmt.Errorf("CRITICAL: Failed to initialize CUE validator: %w", err)
	}
	if err := v.ValidateFacts(tables); err != nil {
		return fmt.Errorf("CRITICAL: fact tables violate contract: %w", err)
	}

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n=== Verbose: Audit rules ===\n")
		for _, rule := range policy.Rules {
			if !cfg.IsRuleEnabled(rule) {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %-26s off\n", rule)
				continue
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  %-26s %s\n", rule, cfg.GetRuleSeverity(rule, "default"))
		}
	}

	engine, err := policy.New(cmd.Context(), cfg.Audit.PolicyDir)
	if err != nil {
		return fmt.Errorf("loading policies: %w", err)
	}
	result, err := engine.Evaluate(cmd.Context(), policy.NewInput(tables, cfg.Audit.Rules))
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if auditJSON {
		if err := encodeJSON(out, result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else {
		if auditNoColor {
			color.NoColor = true
		}
		printAuditReport(out, result)
	}

	if result.Summary.Errors > 0 {
		return fmt.Errorf("audit found %d errors", result.Summary.Errors)
	}
	return nil
}

func printAuditReport(out io.Writer, result *policy.Result) {
	heading := color.New(color.Bold)
	severities := map[string]*color.Color{
		"error":   color.New(color.FgRed, color.Bold),
		"warning": color.New(color.FgYellow, color.Bold),
		"info":    color.New(color.FgHiBlue),
	}

	for _, v := range result.Violations {
		label, ok := severities[v.Severity]
		if !ok {
			label = heading
		}
		fmt.Fprintf(out, "%s:%d: ", v.File, v.Line)
		label.Fprint(out, v.Severity)
		fmt.Fprintf(out, " [%s] %s\n", v.Rule, v.Message)
	}

	s := result.Summary
	if s.TotalViolations == 0 {
		heading.Fprintln(out, "No violations")
		return
	}
	heading.Fprintf(out, "\n%d violations", s.TotalViolations)
	fmt.Fprintf(out, " (%d errors, %d warnings, %d info)\n", s.Errors, s.Warnings, s.Info)
}
