package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jason-riddle/dkr-go"
	"github.com/jason-riddle/dkr-go/cmd/dkr/internal/watch"
)

func newDocsCmd(a *app) *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage documents",
	}

	docsCmd.AddCommand(
		newDocsListCmd(a),
		newDocsGetCmd(a),
		newDocsUploadCmd(a),
		newDocsDeleteCmd(a),
		newDocsWatchCmd(a),
	)
	return docsCmd
}

func newDocsListCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts *dkr.ListOptions
			if category != "" {
				opts = &dkr.ListOptions{Category: category}
			}
			docs, err := a.client.ListDocuments(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []dkr.Document{}
			}
			return a.print(docs, func(w io.Writer) error {
				return documentTable(w, docs)
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list documents in this category")
	return cmd
}

func documentTable(w io.Writer, docs []dkr.Document) error {
	rows := make([]string, len(docs))
	for i, doc := range docs {
		uploaded := "-"
		if t, ok := doc.UploadedAt(); ok {
			uploaded = humanize.Time(t)
		}
		rows[i] = fmt.Sprintf("%s\t%s\t%s\t%d\t%s", doc.DocID, doc.Title, doc.Category, doc.PageCount, uploaded)
	}
	return table(w, "ID\tTITLE\tCATEGORY\tPAGES\tUPLOADED", rows)
}

func newDocsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.client.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(doc, func(w io.Writer) error {
				fmt.Fprintf(w, "ID:        %s\n", doc.DocID)
				fmt.Fprintf(w, "Title:     %s\n", doc.Title)
				fmt.Fprintf(w, "Category:  %s\n", doc.Category)
				fmt.Fprintf(w, "Pages:     %d\n", doc.PageCount)
				if len(doc.Keywords) > 0 {
					fmt.Fprintf(w, "Keywords:  %v\n", doc.Keywords)
				}
				if t, ok := doc.UploadedAt(); ok {
					fmt.Fprintf(w, "Uploaded:  %s (%s)\n", t.Format(time.RFC3339), humanize.Time(t))
				}
				return nil
			})
		},
	}
}

func newDocsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.client.DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted %s: %s\n", args[0], result.Message)
				return err
			})
		},
	}
}

// uploadOutput reports one file of dkr docs upload.
type uploadOutput struct {
	File   string            `json:"file"`
	Size   int64             `json:"size"`
	Result *dkr.UploadResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func newDocsUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload PDF files",
		Long:  "Upload PDF files. Several files are uploaded concurrently.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			futures := make([]*dkr.Future[*dkr.UploadResult], len(args))
			for i, path := range args {
				futures[i] = dkr.Go(ctx, func(ctx context.Context) (*dkr.UploadResult, error) {
					return a.client.UploadDocumentFile(ctx, path)
				})
			}

			outputs := make([]uploadOutput, len(args))
			var failed []error
			for i, f := range futures {
				out := uploadOutput{File: args[i]}
				if info, err := os.Stat(args[i]); err == nil {
					out.Size = info.Size()
				}
				result, err := f.Result()
				if err == nil && !result.Success {
					err = fmt.Errorf("%s: %s", result.Message, result.Error)
				}
				if err != nil {
					out.Error = describe(err)
					failed = append(failed, fmt.Errorf("%s: %w", args[i], err))
				}
				out.Result = result
				outputs[i] = out
			}

			if err := a.print(outputs, func(w io.Writer) error {
				for _, out := range outputs {
					name := filepath.Base(out.File)
					if out.Error != "" {
						fmt.Fprintf(w, "✗ %s: %s\n", name, out.Error)
						continue
					}
					fmt.Fprintf(w, "✓ %s (%s) -> %s in %s\n", name, humanize.Bytes(uint64(out.Size)), out.Result.DocID, out.Result.Category)
				}
				return nil
			}); err != nil {
				return err
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d uploads failed: %w", len(failed), len(args), errors.Join(failed...))
			}
			return nil
		},
	}
}

func newDocsWatchCmd(a *app) *cobra.Command {
	var quiet time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload PDF files as they appear in a directory",
		Long: `Watch a directory and upload each new or changed PDF once it has
not been written to for the --quiet period. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			dir := args[0]
			if quiet <= 0 {
				return fmt.Errorf("--quiet must be positive, got %s", quiet)
			}

			watcher, err := watch.New(a.logger)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			events, err := watcher.Watch(ctx, dir)
			if err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			a.logger.Info("watching for documents", "dir", dir, "quiet", quiet)

			for path := range watch.Settled(ctx, events, quiet) {
				out := uploadOutput{File: path}
				if info, err := os.Stat(path); err == nil {
					out.Size = info.Size()
				}
				result, err := a.client.UploadDocumentFile(ctx, path)
				if err == nil && !result.Success {
					err = fmt.Errorf("%s: %s", result.Message, result.Error)
				}
				if err != nil {
					a.logger.Warn("upload failed", "file", path, "error", err)
					out.Error = describe(err)
				}
				out.Result = result

				if err := a.print(out, func(w io.Writer) error {
					if out.Error != "" {
						_, err := fmt.Fprintf(w, "✗ %s: %s\n", filepath.Base(path), out.Error)
						return err
					}
					_, err := fmt.Fprintf(w, "✓ %s (%s) -> %s in %s\n", filepath.Base(path), humanize.Bytes(uint64(out.Size)), result.DocID, result.Category)
					return err
				}); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&quiet, "quiet", 2*time.Second, "How long a file must be unchanged before it is uploaded")
	return cmd
}
