package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/tbourn/x402-media-gateway/internal/routes"
	"github.com/tbourn/x402-media-gateway/internal/sysutil"
)

const defaultTokenDecimals = 18

// routeTableFlags are shared by the routes subcommands. Neither needs the
// full gateway configuration.
type routeTableFlags struct {
	file     string
	decimals int
}

func (f *routeTableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Route table (default $ROUTES_CONFIG or routes.toml)")
	cmd.Flags().IntVar(&f.decimals, "decimals", -1, "Token decimals (default $PAYMENT_TOKEN_DECIMALS or 18)")
}

func (f *routeTableFlags) load() (*routes.Registry, string, int, error) {
	path := sysutil.FirstNonEmpty(f.file, os.Getenv("ROUTES_CONFIG"), "routes.toml")
	decimals := f.decimals
	if decimals < 0 {
		decimals = defaultTokenDecimals
		if v := strings.TrimSpace(os.Getenv("PAYMENT_TOKEN_DECIMALS")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, path, 0, fmt.Errorf("PAYMENT_TOKEN_DECIMALS: %w", err)
			}
			decimals = n
		}
	}
	defs, err := routes.Load(path)
	if err != nil {
		return nil, path, decimals, err
	}
	reg, err := routes.NewRegistry(defs, decimals)
	return reg, path, decimals, err
}

func newRoutesCommand() *cobra.Command {
	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "Route table utilities",
	}
	routesCmd.AddCommand(newRoutesValidateCommand())
	routesCmd.AddCommand(newRoutesListCommand())
	return routesCmd
}

func newRoutesValidateCommand() *cobra.Command {
	var flags routeTableFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a route table for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, path, _, err := flags.load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d routes, %d quality tiers OK\n", path, len(reg.Routes()), reg.Len())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newRoutesListCommand() *cobra.Command {
	var flags routeTableFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every route and quality tier with its price",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, _, err := flags.load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRoutes(reg))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func renderRoutes(reg *routes.Registry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Route", "Quality", "Default", "Model", "Price", "Amount", "Type", "Transcode"})
	for _, route := range reg.Routes() {
		for _, d := range reg.Qualities(route) {
			def := ""
			if d.Default {
				def = "yes"
			}
			tc := ""
			if d.Transcodes() {
				tc = d.PostProcess.InputExtension + " -> " + d.OutputExtension
			}
			tw.AppendRow(table.Row{d.Route, d.Quality, def, d.Model, d.Price, d.Amount(), d.MediaType, tc})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
