package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/octobees/opsboard/internal/database"
	"github.com/octobees/opsboard/internal/repository"
)

func (a *app) listCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "list <request.yaml>",
		Short: "Run a list request against the database and print the page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := LoadRequest(args[0])
			if err != nil {
				return err
			}
			if a.cfg.DatabaseURL == "" {
				return fmt.Errorf("database_url is not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := database.Connect(ctx, a.cfg.DatabaseURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			page := req.PageFor(a.cfg.PagingDefaults())
			var result any
			switch req.Endpoint {
			case EndpointTasks:
				filter := req.TaskFilter()
				filter.Page = page
				result, err = repository.NewPGXTasksRepository(pool).List(ctx, filter)
			case EndpointContractors:
				filter, ferr := req.ContractorFilter()
				if ferr != nil {
					return ferr
				}
				filter.Page = page
				result, err = repository.NewPGXContractorsRepository(pool).ListInTask(ctx, filter)
			case EndpointCandidates:
				filter, ferr := req.CandidateFilter()
				if ferr != nil {
					return ferr
				}
				filter.Page = page
				result, err = repository.NewPGXContractorsRepository(pool).SearchNearby(ctx, filter)
			case EndpointWarehouse:
				filter, ferr := req.WarehouseFilter()
				if ferr != nil {
					return ferr
				}
				filter.Page = page
				db, derr := database.SQLFromPool(pool)
				if derr != nil {
					return derr
				}
				defer db.Close()
				result, err = repository.NewSQLWarehouseRepository(db).List(ctx, filter)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall deadline for the request")
	return cmd
}
