package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jason-riddle/dkr-go"
	"github.com/jason-riddle/dkr-go/cmd/dkr/internal/history"
)

// conversationFlags are shared by query and ask.
type conversationFlags struct {
	session   string
	options   []string
	noHistory bool
	steps     bool
}

func (f *conversationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.session, "session", "s", "", "Continue a conversation (default: start a new one)")
	cmd.Flags().StringArrayVar(&f.options, "option", nil, "Option forwarded to the backend as key=value, repeatable")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record the exchange in local history")
	cmd.Flags().BoolVar(&f.steps, "steps", false, "Print the execution steps after the answer")
}

// parseOptions turns key=value pairs into an options map. Values that
// parse as JSON keep their type; anything else is a string.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q (want key=value)", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			options[key] = decoded
		} else {
			options[key] = value
		}
	}
	return options, nil
}

// record appends an exchange to the local history. Failures are logged
// and do not fail the command.
func (a *app) record(session string, msgs ...dkr.Message) {
	db, err := history.NewDB(a.cfg.HistoryDB)
	if err != nil {
		a.logger.Warn("history unavailable", "path", a.cfg.HistoryDB, "error", err)
		return
	}
	defer db.Close()

	if err := db.Append(session, msgs...); err != nil {
		a.logger.Warn("failed to record history", "session", session, "error", err)
	}
}

// queryOutput is a query response tagged with its session.
type queryOutput struct {
	Session string `json:"session"`
	*dkr.QueryResponse
}

func newQueryCmd(a *app) *cobra.Command {
	var flags conversationFlags

	cmd := &cobra.Command{
		Use:   "query <question>...",
		Short: "Ask a question against the document library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			options, err := parseOptions(flags.options)
			if err != nil {
				return err
			}

			session := flags.session
			if session == "" {
				session = history.NewSessionID()
			}
			if options == nil {
				options = map[string]any{}
			}
			if _, ok := options["thread_id"]; !ok {
				options["thread_id"] = session
			}

			question := dkr.NewUserMessage(text)
			resp, err := a.client.Query(cmd.Context(), &dkr.QueryRequest{Query: text, Options: options})
			if err != nil {
				return err
			}
			if !flags.noHistory {
				a.record(session, question, resp.Message())
			}

			if err := a.print(queryOutput{Session: session, QueryResponse: resp}, func(w io.Writer) error {
				answer, err := resp.Result()
				if err != nil {
					return nil
				}
				fmt.Fprintln(w, answer)
				if flags.steps {
					printExecutionSteps(w, resp.ExecutionSteps)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "session %s, %.2fs\n", session, resp.ProcessingTime)
				return nil
			}); err != nil {
				return err
			}

			_, err = resp.Result()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func printExecutionSteps(w io.Writer, steps []dkr.ExecutionStep) {
	for i, step := range steps {
		n := step.Step
		if n == 0 {
			n = i + 1
		}
		switch step.Type {
		case dkr.StepToolCall:
			fmt.Fprintf(w, "  %d. %s %s(%s)\n", n, step.Type, step.ToolName, step.ToolArgs)
		default:
			fmt.Fprintf(w, "  %d. %s %s\n", n, step.Type, truncate(step.Content, 80))
		}
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

// askOutput is an agent response tagged with its session.
type askOutput struct {
	Session string `json:"session"`
	*dkr.AgentResponse
}

func newAskCmd(a *app) *cobra.Command {
	var flags conversationFlags

	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask the agent, which navigates the library layer by layer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			options, err := parseOptions(flags.options)
			if err != nil {
				return err
			}

			session := flags.session
			if session == "" {
				session = history.NewSessionID()
			}

			question := dkr.NewUserMessage(text)
			resp, err := a.client.Ask(cmd.Context(), text, options)
			if err != nil {
				return err
			}
			if !flags.noHistory {
				a.record(session, question, resp.Message())
			}

			if err := a.print(askOutput{Session: session, AgentResponse: resp}, func(w io.Writer) error {
				answer, err := resp.Result()
				if err != nil {
					return nil
				}
				fmt.Fprintln(w, answer)
				for _, src := range resp.Sources {
					fmt.Fprintf(w, "  [%s p.%d] %.2f\n", src.DocTitle, src.PageNumber, src.RelevanceScore)
				}
				if flags.steps {
					for _, step := range resp.AgentSteps {
						fmt.Fprintf(w, "  %d. %s: %s\n", step.Step, step.Action, step.Description)
					}
					printExecutionSteps(w, resp.ExecutionSteps)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "session %s, %.2fs\n", session, resp.ProcessingTime)
				return nil
			}); err != nil {
				return err
			}

			_, err = resp.Result()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
