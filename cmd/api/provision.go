package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusvoice/complaint-service/internal/repository"
	"github.com/campusvoice/complaint-service/internal/service"
)

var provisionAdminCmd = &cobra.Command{
	Use:   "provision-admin",
	Short: "Create the initial general manager from BOOTSTRAP_ADMIN_* settings",
	Long: "Creates a GeneralManager account from BOOTSTRAP_ADMIN_USERNAME, BOOTSTRAP_ADMIN_EMAIL and " +
		"BOOTSTRAP_ADMIN_PASSWORD_FILE (or BOOTSTRAP_ADMIN_PASSWORD). Does nothing if the username exists.",
	RunE: runProvisionAdmin,
}

func runProvisionAdmin(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := connectPostgres(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	provisioner := service.NewProvisioningService(*cfg, repository.NewUserRepository(pg.PoolHandle()), logger)
	created, err := provisioner.EnsureAdmin(cmd.Context(), cfg.Bootstrap)
	if err != nil {
		return err
	}
	logger.Info("provision-admin finished",
		zap.String("username", cfg.Bootstrap.AdminUsername),
		zap.Bool("created", created))
	return nil
}
