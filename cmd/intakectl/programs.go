package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	v1 "github.com/openintake/intaked/pkg/api/v1"
)

var (
	// programs command flags
	programsOutputJSON bool
	programsLanguage   string
)

func init() {
	rootCmd.AddCommand(programsCmd)
	programsCmd.AddCommand(programsListCmd)
	programsCmd.AddCommand(programsSchemaCmd)

	programsCmd.PersistentFlags().BoolVar(&programsOutputJSON, "json", false, "Output results as JSON")
	programsCmd.PersistentFlags().StringVar(&programsLanguage, "language", "en", "Preferred language for names and prompts (en or fr)")
}

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Browse intake programs",
	Long: `Browse the intake programs the server currently serves.

Examples:
  # List all programs
  intakectl programs list

  # Show the full field layout of one program
  intakectl programs schema benefits-renewal`,
}

var programsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available programs",
	Long: `List the programs available for intake, with their channels and
identifier requirements.

Examples:
  # List all programs
  intakectl programs list

  # List with French names
  intakectl programs list --language fr

  # Output as JSON
  intakectl programs list --json`,
	RunE: runProgramsList,
}

var programsSchemaCmd = &cobra.Command{
	Use:   "schema <program-id>",
	Short: "Show a program's intake schema",
	Long: `Show the full intake schema of one program: every collected field,
its type and requirement, and the business rules applied on validation.

Examples:
  # Show a program schema
  intakectl programs schema benefits-renewal

  # Output as JSON
  intakectl programs schema benefits-renewal --json`,
	Args: cobra.ExactArgs(1),
	RunE: runProgramsSchema,
}

func runProgramsList(cmd *cobra.Command, args []string) error {
	var programs []v1.ProgramSummary
	if err := getJSON("/api/v1/programs", &programs); err != nil {
		return err
	}

	if programsOutputJSON {
		return outputJSON(programs)
	}

	if len(programs) == 0 {
		fmt.Println("No programs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCHANNELS\tSIN\tCRA\tFIELDS")
	for _, p := range programs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			p.ID,
			truncate(localized(p.Names, programsLanguage), 40),
			strings.Join(p.Channels, ","),
			yesNo(p.RequiresSIN),
			yesNo(p.RequiresCRA),
			p.FieldCount,
		)
	}
	w.Flush()

	return nil
}

func runProgramsSchema(cmd *cobra.Command, args []string) error {
	var doc v1.ProgramSchemaDoc
	if err := getJSON("/api/v1/programs/"+args[0]+"/schema", &doc); err != nil {
		return err
	}

	if programsOutputJSON {
		return outputJSON(doc)
	}

	fmt.Printf("Program: %s\n", doc.ID)
	fmt.Printf("Name: %s\n", localized(doc.Names, programsLanguage))
	if dept := localized(doc.Department, programsLanguage); dept != "" {
		fmt.Printf("Department: %s\n", dept)
	}
	if doc.FiscalYear != "" {
		fmt.Printf("Fiscal Year: %s\n", doc.FiscalYear)
	}
	if len(doc.Channels) > 0 {
		fmt.Printf("Channels: %s\n", strings.Join(doc.Channels, ", "))
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tREQUIRED\tPROMPT")
	for _, f := range doc.Fields {
		fieldType := f.Type
		if len(f.Options) > 0 {
			fieldType = fmt.Sprintf("%s(%s)", f.Type, strings.Join(f.Options, "|"))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.Name,
			truncate(fieldType, 30),
			yesNo(f.Required),
			truncate(localized(f.Prompts, programsLanguage), 50),
		)
	}
	w.Flush()

	if len(doc.Rules) > 0 {
		fmt.Println("\nRules:")
		for _, r := range doc.Rules {
			if len(r.Fields) > 0 {
				fmt.Printf("  %s: %s\n", r.Kind, strings.Join(r.Fields, ", "))
			} else {
				fmt.Printf("  %s\n", r.Kind)
			}
		}
	}

	return nil
}

// localized picks the requested language from a language map, falling
// back to English and then to any value.
func localized(m map[string]string, lang string) string {
	if v, ok := m[lang]; ok && v != "" {
		return v
	}
	if v, ok := m["en"]; ok && v != "" {
		return v
	}
	for _, v := range m {
		if v != "" {
			return v
		}
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
