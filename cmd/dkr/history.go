package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jason-riddle/dkr-go"
	"github.com/jason-riddle/dkr-go/cmd/dkr/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "history [session]",
		Short: "List conversation sessions, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := history.NewDB(a.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				if remove {
					return fmt.Errorf("--delete needs a session")
				}
				sessions, err := db.Sessions()
				if err != nil {
					return err
				}
				if sessions == nil {
					sessions = []history.Session{}
				}
				return a.print(sessions, func(w io.Writer) error {
					rows := make([]string, len(sessions))
					for i, s := range sessions {
						rows[i] = fmt.Sprintf("%s\t%d\t%s", s.ID, s.MessageCount, humanize.Time(s.UpdatedAt))
					}
					return table(w, "SESSION\tMESSAGES\tUPDATED", rows)
				})
			}

			session := args[0]
			if remove {
				if err := db.DeleteSession(session); err != nil {
					return err
				}
				return a.print(map[string]string{"deleted": session}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted session %s\n", session)
					return err
				})
			}

			msgs, err := db.Messages(session)
			if err != nil {
				return err
			}
			if msgs == nil {
				msgs = []dkr.Message{}
			}
			return a.print(msgs, func(w io.Writer) error {
				for _, m := range msgs {
					fmt.Fprintf(w, "[%s] %s:\n%s\n\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.Role, m.Content)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the given session")
	return cmd
}
