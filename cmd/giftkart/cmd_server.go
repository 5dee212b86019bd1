package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/giftkart/app/tasks"
	"github.com/shashiranjanraj/giftkart/config"
	"github.com/shashiranjanraj/giftkart/internal/kernel"
	"github.com/shashiranjanraj/giftkart/internal/server"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/migration"
	"github.com/shashiranjanraj/giftkart/pkg/router"
	"github.com/shashiranjanraj/giftkart/pkg/schedule"
)

var serveWorkersFlag int

// giftkart serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP and gRPC servers with queue workers and the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := boot(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		if err := migration.New(rt.db).Run(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		handler, err := rt.kernel.Handler(ctx)
		if err != nil {
			return err
		}

		s := schedule.New()
		tasks.Register(s, rt.kernel.OrderService)

		var wg sync.WaitGroup
		background := []func(){
			func() { rt.hub.Run(ctx) },
			func() { rt.queue.Run(ctx, serveWorkersFlag) },
			func() { s.Start(ctx) },
		}
		for _, fn := range background {
			fn := fn // per-iteration copy (go 1.21 loop semantics)
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn()
			}()
		}

		err = server.Start(ctx, handler, server.Options{
			Addr:     ":" + config.AppPort(),
			GRPCPort: config.GRPCPort(),
			Probe:    rt.kernel.Ping,
		})
		stop()
		wg.Wait()
		rt.kernel.Events.Wait()
		logger.Info("giftkart stopped")
		return err
	},
}

// giftkart route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := router.New()
		if err := kernel.New(kernel.Deps{}).Routes(r); err != nil {
			return err
		}

		infos := r.Routes()
		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Path != infos[j].Path {
				return infos[i].Path < infos[j].Path
			}
			return infos[i].Method < infos[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveWorkersFlag, "workers", "w", 4, "Number of in-process queue workers")
}
