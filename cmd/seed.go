/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/onboardhq/apiserver/config"
	"github.com/onboardhq/apiserver/internal/db"
	"github.com/onboardhq/apiserver/internal/services"
	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/types"
	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedPassword string
	seedName     string
)

// seedCmd bootstraps an admin account. The admin API only creates staff
// accounts, so this is the sole path to the admin role.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedEmail == "" || seedPassword == "" {
			return errors.New("--email and --password are required")
		}
		if seedName == "" {
			seedName = seedEmail
		}

		cfg := config.LoadConfig()

		var users services.UserRepository
		switch cfg.Store.Backend {
		case config.StoreFile:
			fileStore, err := store.OpenFileStore(cfg.Store.FilePath)
			if err != nil {
				return err
			}
			users = fileStore.Users()
		case config.StorePostgres:
			dbConn, err := db.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = dbConn.Close()
			}()
			users = store.NewUserRepository(dbConn)
		default:
			return fmt.Errorf("store backend %q cannot be seeded", cfg.Store.Backend)
		}

		hash, err := services.HashPassword(seedPassword)
		if err != nil {
			return err
		}

		admin, err := users.Create(cmd.Context(), types.User{
			Email:        seedEmail,
			Name:         seedName,
			Role:         types.RoleAdmin,
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("account %s already exists", seedEmail)
			}
			return err
		}

		fmt.Printf("created admin %s (id %d)\n", admin.Email, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "admin email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "admin password")
	seedCmd.Flags().StringVar(&seedName, "name", "", "admin display name")
}
