package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-iftar/internal/auth"
	"github.com/joeblew999/plat-iftar/internal/config"
	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/server"
)

// Options defines the CLI flags. Everything else comes from the config file
// and IFTAR_* environment variables.
// Flags: --config, --host, --port
type Options struct {
	Config string `doc:"Path to iftar.yaml (searched in default locations when empty)" short:"c"`
	Host   string `doc:"Host to bind to (overrides server.host)"`
	Port   int    `doc:"Port to listen on (overrides server.port)" short:"p"`
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

func newServer(ctx context.Context, opts *Options) (*server.Server, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return server.New(ctx, cfg)
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		var srv *server.Server

		hooks.OnStart(func() {
			defer cancel()
			var err error
			if srv, err = newServer(ctx, opts); err != nil {
				fatal("Startup failed", err)
			}
			defer srv.Close()

			if err := srv.Run(ctx); err != nil {
				logging.Error().Err(err).Msg("server stopped")
				os.Exit(1)
			}
		})
		hooks.OnStop(cancel)
	})

	cli.Root().Use = "iftar"
	cli.Root().Short = "Community map of iftar distribution points"
	cli.Root().Version = "1.0.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := loadConfig(opts)
			if err != nil {
				fatal("Error loading config", err)
			}
			// the spec does not depend on the backend
			cfg.Store.Driver = "memory"
			srv, err := server.New(cmd.Context(), cfg)
			if err != nil {
				fatal("Error building server", err)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// gen-client subcommand: generate Go client SDK via humaclient
	genClientCmd := &cobra.Command{
		Use:   "gen-client",
		Short: "Generate Go client SDK from the REST API",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			cfg, err := loadConfig(opts)
			if err != nil {
				fatal("Error loading config", err)
			}
			cfg.Store.Driver = "memory"
			srv, err := server.New(cmd.Context(), cfg)
			if err != nil {
				fatal("Error building server", err)
			}
			outDir, _ := cmd.Flags().GetString("output")
			if err := srv.GenerateClient(outDir); err != nil {
				fatal("Error generating client", err)
			}
			fmt.Printf("Client SDK generated in %s/\n", outDir)
		}),
	}
	genClientCmd.Flags().StringP("output", "o", "pkg/"+server.ClientPackage, "Output directory for generated client")
	cli.Root().AddCommand(genClientCmd)

	// hash-password subcommand: produce admin.password_hash
	hashCmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for admin.password_hash (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					fatal("Error reading password", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				fatal("Error hashing password", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
		},
	}
	cli.Root().AddCommand(hashCmd)

	cli.Run()
}
