package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/giftkart/app/payment"
	"github.com/shashiranjanraj/giftkart/app/services"
)

var (
	exportOutFlag    string
	exportStatusFlag string
)

// giftkart orders:expire
var ordersExpireCmd = &cobra.Command{
	Use:   "orders:expire",
	Short: "Cancel unpaid orders past their payment due date",
	Long:  "Cancel unpaid orders past their payment due date and return their stock. Buyer emails are queued, so run a queue:work process with QUEUE_DRIVER=redis to deliver them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := boot(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		n, err := rt.kernel.OrderService.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Expired %d order(s).\n", n)
		return nil
	},
}

// giftkart orders:export
var ordersExportCmd = &cobra.Command{
	Use:   "orders:export",
	Short: "Write orders to an .xlsx spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := boot(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		f, err := os.Create(exportOutFlag)
		if err != nil {
			return err
		}
		n, err := rt.kernel.OrderService.Export(ctx, services.OrderQuery{PaymentStatus: payment.Status(exportStatusFlag)}, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(exportOutFlag) //nolint:errcheck
			return err
		}
		fmt.Printf("Exported %d order(s) to %s\n", n, exportOutFlag)
		return nil
	},
}

func init() {
	ordersExportCmd.Flags().StringVarP(&exportOutFlag, "output", "o", "orders.xlsx", "Output file")
	ordersExportCmd.Flags().StringVar(&exportStatusFlag, "status", "", "Only orders with this payment status")
}
