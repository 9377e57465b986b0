package cmd

import (
	"errors"
	"fmt"

	"radbank/backend/models"
	"radbank/backend/store"

	"github.com/spf13/cobra"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant or revoke the admin role",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		revoke, _ := cmd.Flags().GetBool("revoke")
		if email == "" {
			return errors.New("--email is required")
		}

		_, _, db, err := setup(cmd)
		if err != nil {
			return err
		}

		role := models.RoleAdmin
		if revoke {
			role = models.RoleUser
		}
		err = store.NewUserStore(db).SetRole(cmd.Context(), email, role)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no user with email %s", email)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", store.NormalizeEmail(email), role)
		return nil
	},
}

func init() {
	promoteCmd.Flags().String("email", "", "Email of the user")
	promoteCmd.Flags().Bool("revoke", false, "Demote the user back to a regular user")
}
