package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagepilot/pagepilot/config"
	"github.com/pagepilot/pagepilot/internal/agent/core"
	"github.com/pagepilot/pagepilot/internal/agent/telemetry"
	"github.com/pagepilot/pagepilot/internal/gateway"
	srv "github.com/pagepilot/pagepilot/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "pagepilot"}

	root.AddCommand(serveCMD(), runCMD(), spacesCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if serveAddr == "" {
				serveAddr = os.Getenv("PAGEPILOT_HTTP_ADDR")
			}
			return srv.Run(cfg, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}

func runCMD() *cobra.Command {
	var cfgPath string
	var spaceKey string
	var pages []string
	var run = &cobra.Command{
		Use:   "run [goal]",
		Short: "Execute an Agent Mode goal once and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			tele := telemetry.NewTelemetry(cfg.Telemetry)
			gw := gateway.NewHTTPGateway(cfg.Gateway)
			logger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
			orch := core.NewOrchestrator(cfg, logger, tele, gw)

			res, err := orch.Process(cmd.Context(), core.RunRequest{
				Goal:     strings.Join(args, " "),
				SpaceKey: spaceKey,
				Pages:    pages,
			})
			if err != nil {
				return err
			}
			printResult(res)
			if res.Error != "" {
				return fmt.Errorf("run finished with error: %s", res.Error)
			}
			return nil
		},
	}
	run.Flags().StringVar(&spaceKey, "space", "", "Confluence space key")
	run.Flags().StringSliceVar(&pages, "pages", nil, "page titles to operate on")
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	_ = run.MarkFlagRequired("space")
	_ = run.MarkFlagRequired("pages")

	return run
}

func spacesCMD() *cobra.Command {
	var cfgPath string
	var spaces = &cobra.Command{
		Use:   "spaces",
		Short: "List available Confluence spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			gw := gateway.NewHTTPGateway(cfg.Gateway)
			list, err := gw.GetSpaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Printf("%s\t%s\n", s.Key, s.Name)
			}
			return nil
		},
	}
	spaces.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return spaces
}

// printResult renders the output groups as markdown on stdout.
func printResult(res core.RunResult) {
	fmt.Printf("# %s\n\n", res.Goal)
	for _, group := range res.Groups {
		fmt.Printf("## %s\n\n", group.Name)
		for _, entry := range group.Entries {
			if entry.Key != "" {
				fmt.Printf("### %s\n\n", entry.Key)
			}
			if entry.Output != "" {
				fmt.Printf("%s\n\n", entry.Output)
			}
		}
	}
	fmt.Printf("_completed in %s_\n", res.Elapsed.Round(time.Millisecond))
}
