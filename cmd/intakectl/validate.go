package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	v1 "github.com/openintake/intaked/pkg/api/v1"
)

var (
	// validate command flags
	valProgramID  string
	valLanguage   string
	valChannel    string
	valSIN        string
	valCRA        string
	valEmail      string
	valFields     []string
	valDetails    bool
	valOutputJSON bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&valProgramID, "program", "", "Program identifier (required)")
	validateCmd.Flags().StringVar(&valLanguage, "language", "", "Preferred language (en or fr)")
	validateCmd.Flags().StringVar(&valChannel, "channel", "", "Preferred contact channel")
	validateCmd.Flags().StringVar(&valSIN, "sin", "", "Social Insurance Number")
	validateCmd.Flags().StringVar(&valCRA, "cra", "", "CRA business number")
	validateCmd.Flags().StringVar(&valEmail, "email", "", "Contact email address")
	validateCmd.Flags().StringArrayVar(&valFields, "field", nil, "Additional field as name=value (repeatable)")
	validateCmd.Flags().BoolVar(&valDetails, "details", false, "Show every finding and the normalized output")
	validateCmd.Flags().BoolVar(&valOutputJSON, "json", false, "Output results as JSON")
	_ = validateCmd.MarkFlagRequired("program")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a submission without starting a session",
	Long: `Validate a one-shot submission against a program's schema and rules.
No session is created and nothing is recorded; the command reports the
findings and exits non-zero when the submission is invalid.

Examples:
  # Validate identifiers for a program
  intakectl validate --program benefits-renewal --sin 123-456-789 --email pat@example.ca

  # Validate a full submission with arbitrary fields
  intakectl validate --program wage-subsidy \
    --cra 123456789RC0001 \
    --language fr --channel email \
    --field business_name="Chez Pat" \
    --details

  # Output as JSON
  intakectl validate --program benefits-renewal --sin 123456789 --json`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	fields, err := parseKeyValues(valFields)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = make(map[string]string)
	}
	if valSIN != "" {
		fields["sin"] = valSIN
	}
	if valCRA != "" {
		fields["cra_business_number"] = valCRA
	}
	if valEmail != "" {
		fields["contact_email"] = valEmail
	}

	req := v1.SubmissionRequest{
		ProgramID: valProgramID,
		Language:  valLanguage,
		Channel:   valChannel,
		Fields:    fields,
	}

	var report v1.ValidationReport
	if err := postJSON("/api/v1/validate", req, &report); err != nil {
		return err
	}

	if valOutputJSON {
		if err := outputJSON(report); err != nil {
			return err
		}
		if !report.Valid {
			os.Exit(1)
		}
		return nil
	}

	errorCount := 0
	warningCount := 0
	for _, issue := range report.Issues {
		if issue.Severity == "warning" {
			warningCount++
		} else {
			errorCount++
		}
	}

	if report.Valid {
		fmt.Printf("Submission is valid for program %s\n", report.ProgramID)
	} else {
		fmt.Printf("Submission is invalid for program %s (%d error(s), %d warning(s))\n",
			report.ProgramID, errorCount, warningCount)
	}

	if len(report.Issues) > 0 && (valDetails || !report.Valid) {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FIELD\tKIND\tSEVERITY\tMESSAGE")
		for _, issue := range report.Issues {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				issue.Field, issue.Kind, issue.Severity, issue.Message)
		}
		w.Flush()
	}

	if valDetails && report.Normalized != nil {
		fmt.Println("\nNormalized submission:")
		fmt.Printf("  preferred_language: %s\n", report.Normalized.Language)
		fmt.Printf("  preferred_channel: %s\n", report.Normalized.Channel)
		for _, name := range sortedKeys(report.Normalized.Fields) {
			fmt.Printf("  %s: %s\n", name, report.Normalized.Fields[name])
		}
	}

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

// sortedKeys returns the map's keys in sorted order for stable output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
