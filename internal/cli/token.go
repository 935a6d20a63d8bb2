package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octobees/opsboard/internal/auth"
)

func (a *app) tokenCmd() *cobra.Command {
	var (
		userID int64
		email  string
		role   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing of the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.IsRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			if a.cfg.JWTSecret == "" {
				return fmt.Errorf("jwt_secret is not configured")
			}
			ttl, err := a.cfg.TTL()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTManager(a.cfg.JWTSecret, ttl).GenerateToken(userID, email, role)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User id placed in the token subject")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "Role claim: admin, dispatcher or storekeeper")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
