// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cmd implements the hello command line.
package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/z5labs/blueprint/app"
	"github.com/z5labs/blueprint/config"
	"github.com/z5labs/blueprint/example/hello/service"

	"github.com/spf13/cobra"
)

// Execute runs the hello command line with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand creates the hello command and its subcommands.
func NewRootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "hello",
		Short:         "Hello API built from a declarative route specification",
		Version:       service.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env", ".env.local"}, "dotenv files to load, later files win")

	root.AddCommand(
		newServeCommand(&envFiles),
		newOpenApiCommand(&envFiles),
	)
	return root
}

func newServeCommand(envFiles *[]string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API",
		Example: `  hello serve
  hello serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []config.Option{config.EnvFiles(*envFiles...)}
			if cmd.Flags().Changed("port") {
				opts = append(opts, config.Set(config.KeyPort, port))
			}

			logHandler := slog.NewJSONHandler(cmd.ErrOrStderr(), nil)
			cfg, err := config.Load(opts...)
			if err != nil {
				app.LogError(logHandler, err)
				return err
			}

			logHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})
			err = app.Run(cmd.Context(), service.Build(cfg, logHandler))
			app.LogError(logHandler, err)
			return err
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 4000, "port to listen on, overrides PORT")
	return cmd
}

func newOpenApiCommand(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document",
		Long:  "Compile the API without serving it and print its OpenAPI document, e.g. for client generators.",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				app.LogError(slog.NewJSONHandler(cmd.ErrOrStderr(), nil), err)
			}()

			cfg, err := config.Load(config.EnvFiles(*envFiles...))
			if err != nil {
				return err
			}

			api, _, err := service.NewApi(service.Options{Config: cfg})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(api.Spec())
		},
	}
}

// Main runs the command line with the process arguments and exits non-zero on failure.
func Main() {
	err := Execute(context.Background(), os.Args[1:])
	if err != nil {
		os.Exit(1)
	}
}
