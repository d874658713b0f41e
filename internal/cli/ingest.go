package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tianqilab/tianqi/internal/ingest"
	"github.com/tianqilab/tianqi/internal/query"
	"github.com/tianqilab/tianqi/internal/tool"
)

// NewIngestCommand creates the ingest command: fetch a city's history
// from the upstream source and load it into the database. This is the
// same path as the query.update_range tool, exposed for operators.
func NewIngestCommand(opts *RootOptions) *cobra.Command {
	var (
		city    string
		start   string
		end     string
		baseURL string
		rps     float64
	)

	cmd := &cobra.Command{
		Use:          "ingest",
		Short:        "Fetch and store a city's observation history",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
				Ingestor: ingest.NewClient(baseURL, rps, reg, log),
				Logger:   log,
			})

			args, err := json.Marshal(map[string]string{
				"city":       city,
				"start_date": start,
				"end_date":   end,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "encode arguments", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			result, err := svc.Dispatch(cmd.Context(), query.ToolUpdateRange, args)
			if err != nil {
				if ferr := out.Error(tool.ErrorKind(err), err.Error()); ferr != nil {
					return WrapExitError(ExitCommandError, "write output", ferr)
				}
				return NewExitError(ExitFailure, "ingest failed")
			}
			return out.Success(result)
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "city name (Chinese or pinyin)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "history source base URL (default upstream)")
	cmd.Flags().Float64Var(&rps, "rps", 0.5, "max requests per second against the source")
	if err := cmd.MarkFlagRequired("city"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("start"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("end"); err != nil {
		panic(err)
	}
	return cmd
}
