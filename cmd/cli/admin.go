package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/weaveapp/weave/backend/internal/database"
	"github.com/weaveapp/weave/backend/internal/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("Migrations applied")
		return nil
	},
}

var promoteAdminCmd = &cobra.Command{
	Use:   "promote-admin <username>",
	Short: "Grant admin rights to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		var user models.User
		if err := database.DB.Where("LOWER(username) = LOWER(?)", username).First(&user).Error; err != nil {
			return fmt.Errorf("user %q not found: %w", username, err)
		}
		if user.IsAdmin {
			fmt.Printf("%s is already an admin\n", user.Username)
			return nil
		}

		if err := database.DB.Model(&user).Update("is_admin", true).Error; err != nil {
			return fmt.Errorf("failed to promote %q: %w", username, err)
		}
		fmt.Printf("%s is now an admin\n", user.Username)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts for the main tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := []struct {
			name  string
			model interface{}
		}{
			{"users", &models.User{}},
			{"threads", &models.Thread{}},
			{"replies", &models.ThreadReply{}},
			{"likes", &models.ThreadLike{}},
			{"reposts", &models.Repost{}},
			{"bookmarks", &models.Bookmark{}},
			{"follows", &models.Follow{}},
			{"notifications", &models.Notification{}},
			{"messages", &models.Message{}},
			{"ad placements", &models.AdPlacement{}},
		}

		for _, t := range tables {
			var count int64
			if err := database.DB.Model(t.model).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count %s: %w", t.name, err)
			}
			fmt.Printf("%-15s %d\n", t.name, count)
		}
		return nil
	},
}
