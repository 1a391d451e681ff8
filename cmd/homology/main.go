package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError marks bad arguments, flags or configuration (exit code 2).
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "homology: %s\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	f := &enrichFlags{}
	root := &cobra.Command{
		Use:   "homology <file> <species> <out>",
		Short: "Enrich a table of Ensembl gene ids with homology counts and ids",
		Long: `homology looks up every gene id of an xlsx or csv table in the Ensembl REST
homology endpoint and writes the table back as CSV with two extra columns:
Count (homologies reported for the gene) and one named after --type holding
the comma-joined ids of homologs in --tspecies.

Rows whose id is not text are passed through with Count 0. Lookups that fail
are logged and also produce Count 0; they never stop the run.

Running "homology <file> <species> <out>" is the same as "homology enrich ...".`,
		Example: `  homology enrich genes.xlsx human enriched.csv --tspecies mouse
  homology enrich genes.csv human out.csv --type paralogues --sequence protein --workers 4`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return nil
			}
			return positionalArgs(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runEnrich(cmd, f, args)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	addEnrichFlags(root, f)

	root.AddCommand(newEnrichCmd(), newVersionCmd())
	return root
}

func newEnrichCmd() *cobra.Command {
	f := &enrichFlags{}
	cmd := &cobra.Command{
		Use:   "enrich <file> <species> <out>",
		Short: "Look up homologies for each gene id in <file> and write <out>",
		Args:  positionalArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd, f, args)
		},
	}
	addEnrichFlags(cmd, f)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Current)
			return err
		},
	}
}

func positionalArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(3)(cmd, args); err != nil {
		return usageError{fmt.Errorf("%w (usage: %s)", err, cmd.UseLine())}
	}
	return nil
}
