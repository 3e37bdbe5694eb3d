package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jason-riddle/dkr-go"
)

func newTokenCmd(a *app) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored API token",
		Long: `Manage the API token file. DKR_API_TOKEN, when set, takes
precedence over the stored token.`,
	}

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store a token (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			f := dkr.TokenFile{Path: a.cfg.TokenFile}
			if err := f.Save(token); err != nil {
				return err
			}
			a.logger.Info("token stored", "path", f.Path)
			return a.print(map[string]string{"path": f.Path}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Token stored in %s\n", f.Path)
				return err
			})
		},
	})

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := dkr.TokenFile{Path: a.cfg.TokenFile}
			if err := f.Clear(); err != nil {
				return err
			}
			return a.print(map[string]string{"path": f.Path}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Token removed from %s\n", f.Path)
				return err
			})
		},
	})

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the token file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(map[string]string{"path": a.cfg.TokenFile}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, a.cfg.TokenFile)
				return err
			})
		},
	})

	return tokenCmd
}
