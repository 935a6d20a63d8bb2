package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/octobees/opsboard/internal/listquery"
	"github.com/octobees/opsboard/internal/repository"
)

type statementJSON struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

type explainJSON struct {
	Endpoint string         `json:"endpoint"`
	Dialect  string         `json:"dialect"`
	Count    *statementJSON `json:"count,omitempty"`
	Data     statementJSON  `json:"data"`
	Stats    *statementJSON `json:"stats,omitempty"`
}

func (a *app) explainCmd() *cobra.Command {
	var (
		dialectName string
		unpaged     bool
	)
	cmd := &cobra.Command{
		Use:   "explain <request.yaml>",
		Short: "Print the SQL a list request compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dialectName == "" {
				dialectName = a.cfg.Dialect
			}
			d, err := listquery.DialectByName(dialectName)
			if err != nil {
				return err
			}
			req, err := LoadRequest(args[0])
			if err != nil {
				return err
			}
			q, err := req.Query(d)
			if err != nil {
				return fmt.Errorf("compile %s request: %w", req.Endpoint, err)
			}

			out := explainJSON{Endpoint: req.Endpoint, Dialect: d.Name()}
			if unpaged {
				st, err := q.Unpaged(req.Sort)
				if err != nil {
					return err
				}
				out.Data = statementJSON{SQL: st.SQL, Args: st.Args}
			} else {
				plan, err := q.Render(req.Sort, req.PageFor(a.cfg.PagingDefaults()))
				if err != nil {
					return err
				}
				out.Count = &statementJSON{SQL: plan.Count.SQL, Args: plan.Count.Args}
				out.Data = statementJSON{SQL: plan.Data.SQL, Args: plan.Data.Args}
			}
			if req.Endpoint == EndpointWarehouse {
				st := q.Aggregate(repository.WarehouseStatsExprs()...)
				out.Stats = &statementJSON{SQL: st.SQL, Args: st.Args}
			}

			if a.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printExplain(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dialectName, "dialect", "", "SQL dialect: postgres or sqlite (default from config)")
	cmd.Flags().BoolVar(&unpaged, "unpaged", false, "Print the ordered data query without LIMIT/OFFSET")
	return cmd
}

func printExplain(w io.Writer, out explainJSON) {
	fmt.Fprintf(w, "-- endpoint: %s, dialect: %s\n", out.Endpoint, out.Dialect)
	if out.Count != nil {
		fmt.Fprintf(w, "-- count\n%s;\n-- args: %v\n", out.Count.SQL, out.Count.Args)
	}
	fmt.Fprintf(w, "-- data\n%s;\n-- args: %v\n", out.Data.SQL, out.Data.Args)
	if out.Stats != nil {
		fmt.Fprintf(w, "-- stats\n%s;\n-- args: %v\n", out.Stats.SQL, out.Stats.Args)
	}
}
