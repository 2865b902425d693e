// AngelaMos | 2026
// seed.go

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/storefront/internal/config"
	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/product"
	"github.com/carterperez-dev/storefront/internal/user"
)

const minSeedPasswordLen = 12

func newSeedCmd(configPath *string) *cobra.Command {
	var (
		adminEmail string
		adminName  string
		skipAdmin  bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install the sample catalogue and the bootstrap SUPER_ADMIN",
		Long: "Installs the sample products and, unless --skip-admin is set, " +
			"creates a SUPER_ADMIN account. The password is read from " +
			"SEED_ADMIN_PASSWORD. Existing rows are never modified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Log)

			password := os.Getenv("SEED_ADMIN_PASSWORD")
			if !skipAdmin && len(password) < minSeedPasswordLen {
				return fmt.Errorf(
					"SEED_ADMIN_PASSWORD must be at least %d characters",
					minSeedPasswordLen,
				)
			}

			db, err := core.NewDatabase(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits right after

			products := product.NewService(
				product.NewRepository(db.DB),
				cfg.Cache.ProductTTL,
				logger,
			)
			if err := products.Seed(ctx, product.SampleProducts()); err != nil {
				return err
			}

			if skipAdmin {
				return nil
			}

			users := user.NewService(user.NewRepository(db.DB))
			u, created, err := users.EnsureSuperAdmin(ctx, adminEmail, adminName, password)
			if err != nil {
				return err
			}

			if created {
				logger.Info("seed complete", "admin_email", u.Email)
			} else {
				logger.Warn("account already exists, left unchanged",
					"email", u.Email,
					"role", u.Role,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@example.com", "bootstrap SUPER_ADMIN email")
	cmd.Flags().StringVar(&adminName, "admin-name", "Super Admin", "bootstrap SUPER_ADMIN display name")
	cmd.Flags().BoolVar(&skipAdmin, "skip-admin", false, "only seed products")

	return cmd
}
