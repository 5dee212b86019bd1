// Command giftkart runs the gift-card storefront API and its maintenance
// tasks.
//
//	giftkart serve              # HTTP + gRPC + queue workers + scheduler
//	giftkart migrate            # run pending migrations
//	giftkart seed               # admin user and sample catalog
//	giftkart queue:work -w 5    # standalone queue workers (QUEUE_DRIVER=redis)
//	giftkart orders:expire      # cancel overdue unpaid orders once
//	giftkart orders:export -o orders.xlsx
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/giftkart/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "giftkart",
	Short:         "Giftkart gift-card storefront",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(scheduleRunCmd)

	rootCmd.AddCommand(ordersExpireCmd)
	rootCmd.AddCommand(ordersExportCmd)
}
