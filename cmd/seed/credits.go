package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digital-checkout/internal/domain/model"
	pg "digital-checkout/internal/infra/db/postgres"
	"digital-checkout/internal/usecase"
)

func init() {
	rootCmd.AddCommand(creditsCmd)
	creditsCmd.Flags().StringP("user", "u", "", "user id to credit")
	creditsCmd.Flags().Int64P("amount", "a", 0, "credits to grant")
	creditsCmd.Flags().Int("expires-in-days", 0, "expire the grant after N days (0 = never)")
	_ = creditsCmd.MarkFlagRequired("user")
	_ = creditsCmd.MarkFlagRequired("amount")
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Grant bonus credits to a user through the ledger",
	Args:  cobra.NoArgs,
	RunE:  runCredits,
}

func runCredits(cmd *cobra.Command, _ []string) error {
	e, cancel, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	user, _ := cmd.Flags().GetString("user")
	amount, _ := cmd.Flags().GetInt64("amount")
	days, _ := cmd.Flags().GetInt("expires-in-days")

	pool, err := e.connect()
	if err != nil {
		return err
	}
	defer pool.Close()

	credits := usecase.NewCreditUseCase(pg.NewPostgresCreditRepo(pool), pg.NewTxManager(pool), e.cfg.Credits.PurchaseExpiresInDays, e.log)
	var expiresAt *time.Time
	if days > 0 {
		t := time.Now().UTC().AddDate(0, 0, days)
		expiresAt = &t
	}
	row, err := credits.AddCredits(e.ctx, user, amount, model.CreditTypeBonus, nil, expiresAt)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s, balance %d\n", amount, user, row.BalanceAfter)
	return nil
}
