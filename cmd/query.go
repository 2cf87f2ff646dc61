package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"apiquery/internal/model"
	"apiquery/internal/normalizer"
	"apiquery/internal/render"
	"apiquery/internal/session"

	"github.com/spf13/cobra"
)

// errQueryFailed marks an Error state whose message was already printed.
var errQueryFailed = errors.New("query failed")

func newQueryCmd() *cobra.Command {
	var (
		raw      bool
		fromFile string
		opts     render.Options
	)

	cmd := &cobra.Command{
		Use:   "query <resource> [suffix] | query --raw <sql>",
		Short: "Run one query and print the result table",
		Example: `  apiquery query users
  apiquery query courses '?title=Math'
  apiquery query --raw 'SELECT id, name FROM users'
  apiquery query --from-file response.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case fromFile != "":
				return cobra.NoArgs(cmd, args)
			case raw:
				return cobra.MinimumNArgs(1)(cmd, args)
			default:
				return cobra.RangeArgs(1, 2)(cmd, args)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			var st session.State
			switch {
			case fromFile != "":
				body, err := os.ReadFile(fromFile)
				if err != nil {
					return err
				}
				st = stateFromBody(body)
			case raw:
				st = newController().SubmitRaw(ctx, strings.Join(args, " "))
			default:
				resource := model.Resource(args[0])
				if !resource.Known() {
					return fmt.Errorf("unknown resource %q (valid: %s)", args[0], resourceNames())
				}
				suffix := ""
				if len(args) == 2 {
					suffix = args[1]
				}
				st = newController().Submit(ctx, resource, suffix)
			}

			if err := render.State(cmd.OutOrStdout(), st, opts); err != nil {
				return err
			}
			if st.Phase == session.Error {
				return errQueryFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "send the arguments as a raw query to the raw-query endpoint")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "normalize a saved JSON response instead of fetching")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colors")
	cmd.Flags().IntVar(&opts.MaxCellWidth, "max-width", 40, "truncate cells wider than this (0 = no limit)")
	cmd.MarkFlagsMutuallyExclusive("raw", "from-file")
	return cmd
}

// stateFromBody runs a saved response body through the same classification as a live query.
func stateFromBody(body []byte) session.State {
	table, err := normalizer.NormalizeBytes(body)
	switch {
	case err != nil:
		return session.State{Phase: session.Error, Err: err}
	case table.Empty():
		return session.State{Phase: session.Empty}
	default:
		return session.State{Phase: session.Success, Table: table}
	}
}

func resourceNames() string {
	names := make([]string, len(model.ResourceOrder))
	for i, r := range model.ResourceOrder {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
