// Command flowdemo replays a fixture directory through the flow engine
// and prints the resulting decision. It exists for manual inspection
// and integration testing, not as a production entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/flowguard/flowguard/flow"
	"github.com/flowguard/flowguard/internal/logging"
	"github.com/flowguard/flowguard/metrics"
	"github.com/flowguard/flowguard/policy"
	"github.com/flowguard/flowguard/procattr"
	"github.com/flowguard/flowguard/testutil/fixture"
)

func main() {
	var (
		logLevel      string
		rulesDir      string
		cacheSize     int
		procAttrBytes int64
	)

	rootCmd := &cobra.Command{
		Use:   "flowdemo <fixture-dir>",
		Short: "Replay a captured flow fixture through the inspection engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(os.Stderr, logging.ParseLevel(logLevel), true)
			rec := metrics.New(prometheus.NewRegistry())

			opts := []flow.Option{
				flow.WithLogger(log),
				flow.WithMetrics(rec),
			}
			if cacheSize > 0 {
				opts = append(opts, flow.WithCacheCapacity(cacheSize))
			}
			if rulesDir != "" {
				pol, err := policy.New(rulesDir, log)
				if err != nil {
					return fmt.Errorf("loading policy rules: %w", err)
				}
				defer pol.Close()
				opts = append(opts, flow.WithPolicy(pol))
			}

			procAttr, err := procattr.New(procAttrBytes)
			if err != nil {
				return fmt.Errorf("building process identity cache: %w", err)
			}
			opts = append(opts, flow.WithProcAttr(procAttr))

			engine := flow.New(opts...)
			return run(engine, args[0])
		},
	}

	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: error|warning|info|debug|trace")
	rootCmd.Flags().StringVar(&rulesDir, "rules-dir", "", "optional directory of Sigma blocklist rules")
	rootCmd.Flags().IntVar(&cacheSize, "dns-cache-size", 0, "DNS response cache capacity (0 = engine default)")
	rootCmd.Flags().Int64Var(&procAttrBytes, "proc-attr-cache-bytes", 0, "process identity backfill cache size in bytes (0 = package default)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(engine *flow.Engine, dir string) error {
	fx, err := fixture.Load(dir)
	if err != nil {
		return fmt.Errorf("loading fixture %s: %w", dir, err)
	}

	ctx := fx.Context
	engine.Arrive(ctx)
	engine.Open(ctx)

	for _, step := range fx.Steps {
		switch step.Kind {
		case fixture.Send:
			if resp, hit := engine.SendWithResponse(ctx, step.Data); hit {
				fmt.Printf("%s: cached DNS response served, %d bytes\n", step.Name, len(resp))
			}
		case fixture.Recv:
			engine.Recv(ctx, step.Data)
		}
	}

	engine.Close(ctx)
	fmt.Println(ctx.Description())
	return nil
}
