package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/giftkart/app/tasks"
	"github.com/shashiranjanraj/giftkart/pkg/schedule"
)

var (
	queueWorkersFlag int
	scheduleOnceFlag bool
)

// giftkart queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker",
	Long:  "Start queue workers. Only useful with QUEUE_DRIVER=redis; the in-memory queue lives inside serve.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := boot(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", queueWorkersFlag)
		rt.queue.Run(ctx, queueWorkersFlag)
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// giftkart schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Start the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := boot(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		s := schedule.New()
		tasks.Register(s, rt.kernel.OrderService)

		if scheduleOnceFlag {
			return s.RunNow(ctx)
		}

		fmt.Println("Registered scheduled tasks:")
		for _, t := range s.List() {
			fmt.Println("  •", t)
		}
		fmt.Println("Scheduler started. Press Ctrl+C to stop.")
		s.Start(ctx)
		fmt.Println("Scheduler stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
	scheduleRunCmd.Flags().BoolVar(&scheduleOnceFlag, "once", false, "Run every task once and exit")
}
