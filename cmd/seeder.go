package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/permit-management/internal/auth"
	"github.com/frahmantamala/permit-management/internal/authz"
	rolePostgres "github.com/frahmantamala/permit-management/internal/role/postgres"
	"github.com/frahmantamala/permit-management/internal/seed"
	"github.com/frahmantamala/permit-management/pkg/logger"
)

var (
	clearData    bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the role catalog and demo data",
	Long:  `Install the permission vocabulary, the role catalog, demo departments and demo accounts. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		lg := logger.Setup(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		st, err := openStore(db)
		if err != nil {
			return err
		}

		hash := func(password string) (string, error) {
			return auth.HashPassword(password, cfg.Security.BCryptCost)
		}
		seeder := seed.New(st, rolePostgres.NewRoleRepository(st), authz.DefaultCatalog(), hash, lg)

		report, err := seeder.Run(cmd.Context(), seed.Options{Clear: clearData, Password: seedPassword})
		if err != nil {
			return err
		}

		fmt.Printf("seeded %d departments and %d users", report.Departments, report.Users)
		if clearData {
			fmt.Printf(", cleared %d permits", report.ClearedPermits)
		}
		fmt.Println()
		for _, u := range seed.DefaultUsers {
			fmt.Printf("  %-24s role=%s\n", u.Email, u.Role)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "soft-delete existing permits before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "password for newly created demo accounts")
}
