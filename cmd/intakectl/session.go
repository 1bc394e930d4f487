package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	v1 "github.com/openintake/intaked/pkg/api/v1"
)

var (
	// session command flags
	sessProgramID  string
	sessLanguage   string
	sessChannel    string
	sessFields     []string
	sessOutputJSON bool
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionAnswerCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionCancelCmd)

	sessionCmd.PersistentFlags().BoolVar(&sessOutputJSON, "json", false, "Output results as JSON")

	// Start-specific flags
	sessionStartCmd.Flags().StringVar(&sessProgramID, "program", "", "Program identifier (required)")
	sessionStartCmd.Flags().StringVar(&sessLanguage, "language", "", "Preferred language (en or fr)")
	sessionStartCmd.Flags().StringVar(&sessChannel, "channel", "", "Preferred contact channel")
	sessionStartCmd.Flags().StringArrayVar(&sessFields, "field", nil, "Initial field as name=value (repeatable)")
	_ = sessionStartCmd.MarkFlagRequired("program")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Drive dialogue sessions",
	Long: `Drive intake dialogue sessions: start one with a partial submission,
answer the clarification questions it poses, and inspect or cancel it.

Examples:
  # Start a session with a partial submission
  intakectl session start --program benefits-renewal --channel email

  # Answer the open questions
  intakectl session answer <session-id> sin=123-456-789 preferred_language=en

  # Show the current state
  intakectl session show <session-id>

  # Abandon the session
  intakectl session cancel <session-id>`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new dialogue session",
	Long: `Start a dialogue session for a program with whatever is already known.
The reply carries the questions for everything still missing or invalid.

Examples:
  # Start with nothing but the program
  intakectl session start --program benefits-renewal

  # Start with a partial submission
  intakectl session start --program benefits-renewal \
    --language fr --channel email \
    --field sin=123-456-789

  # Output as JSON
  intakectl session start --program benefits-renewal --json`,
	RunE: runSessionStart,
}

var sessionAnswerCmd = &cobra.Command{
	Use:   "answer <session-id> [field=value...]",
	Short: "Answer a session's open questions",
	Long: `Merge answers into a session and re-validate. Every call consumes one
turn, even with no answers. An empty value (field=) clears the field.

Examples:
  # Answer two questions
  intakectl session answer 4f2c9c sin=123-456-789 preferred_language=en

  # Clear a previously given value
  intakectl session answer 4f2c9c contact_email=

  # Output as JSON
  intakectl session answer 4f2c9c sin=123456789 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionAnswer,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's current state",
	Long: `Show a session's current state without consuming a turn.

Examples:
  # Show a session
  intakectl session show 4f2c9c

  # Output as JSON
  intakectl session show 4f2c9c --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionShow,
}

var sessionCancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Cancel a session",
	Long: `Abandon a session. The session fails with reason "cancelled" and
accepts no further answers.

Examples:
  # Cancel a session
  intakectl session cancel 4f2c9c`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionCancel,
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	fields, err := parseKeyValues(sessFields)
	if err != nil {
		return err
	}

	req := v1.SubmissionRequest{
		ProgramID: sessProgramID,
		Language:  sessLanguage,
		Channel:   sessChannel,
		Fields:    fields,
	}

	var reply v1.TurnReply
	if err := postJSON("/api/v1/sessions", req, &reply); err != nil {
		return err
	}

	if sessOutputJSON {
		return outputJSON(reply)
	}

	fmt.Printf("Session started\n")
	printTurnReply(&reply)
	return nil
}

func runSessionAnswer(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	answers, err := parseKeyValues(args[1:])
	if err != nil {
		return err
	}

	var reply v1.TurnReply
	if err := postJSON("/api/v1/sessions/"+sessionID+"/answers", v1.AnswersRequest{Answers: answers}, &reply); err != nil {
		return err
	}

	if sessOutputJSON {
		return outputJSON(reply)
	}

	printTurnReply(&reply)
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	var reply v1.TurnReply
	if err := getJSON("/api/v1/sessions/"+args[0], &reply); err != nil {
		return err
	}

	if sessOutputJSON {
		return outputJSON(reply)
	}

	printTurnReply(&reply)
	return nil
}

func runSessionCancel(cmd *cobra.Command, args []string) error {
	var reply v1.TurnReply
	if err := postJSON("/api/v1/sessions/"+args[0]+"/cancel", nil, &reply); err != nil {
		return err
	}

	if sessOutputJSON {
		return outputJSON(reply)
	}

	printTurnReply(&reply)
	return nil
}

// printTurnReply renders a session state reply for humans.
func printTurnReply(reply *v1.TurnReply) {
	fmt.Printf("Session: %s\n", reply.SessionID)
	fmt.Printf("Program: %s\n", reply.ProgramID)
	fmt.Printf("State: %s\n", reply.State)
	if reply.Reason != "" {
		fmt.Printf("Reason: %s\n", reply.Reason)
	}
	fmt.Printf("Turn: %d\n", reply.Turn)

	warnings := make([]v1.IssueDoc, 0, len(reply.Issues))
	for _, issue := range reply.Issues {
		if issue.Severity == "warning" {
			warnings = append(warnings, issue)
		}
	}

	if len(reply.Questions) > 0 {
		fmt.Println("\nQuestions:")
		for _, q := range reply.Questions {
			fmt.Printf("  %s: %s\n", q.Field, q.Prompt)
			if len(q.Options) > 0 {
				fmt.Printf("    options: %v\n", q.Options)
			}
		}
	}

	if reply.Normalized != nil {
		fmt.Println("\nNormalized submission:")
		fmt.Printf("  preferred_language: %s\n", reply.Normalized.Language)
		fmt.Printf("  preferred_channel: %s\n", reply.Normalized.Channel)
		for _, name := range sortedKeys(reply.Normalized.Fields) {
			fmt.Printf("  %s: %s\n", name, reply.Normalized.Fields[name])
		}
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "[intakectl] warning: %s: %s\n", w.Field, w.Message)
	}
}
