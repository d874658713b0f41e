package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tianqilab/tianqi/internal/ingest"
	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/tool"
)

// NewCallCommand creates the call command: invoke one tool by name with
// a JSON argument object.
func NewCallCommand(opts *RootOptions) *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool with JSON arguments",
		Long: "Invoke one named tool, e.g.\n\n" +
			`  tianqi call query.range --args '{"city":"北京","start_date":"2020-01-01","end_date":"2020-01-10","limit":5}'`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "build logger", err)
			}
			defer log.Sync()

			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			st, err := openStore(opts)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := tool.New(reg, st, tool.Options{
				Ingestor: ingest.NewClient("", 0.5, reg, log),
				Logger:   log,
			})

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			result, err := svc.Dispatch(cmd.Context(), args[0], json.RawMessage(argsJSON))
			if err != nil {
				if ferr := out.Error(tool.ErrorKind(err), err.Error()); ferr != nil {
					return WrapExitError(ExitCommandError, "write output", ferr)
				}
				return NewExitError(ExitFailure, "tool invocation failed")
			}
			return out.Success(result)
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "{}", "tool arguments as a JSON object")
	return cmd
}

// NewToolsCommand creates the tools command: list the available tools.
func NewToolsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(query.Tools)
			}
			for _, name := range query.Tools {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
