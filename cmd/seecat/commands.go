package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/driver"
	"github.com/agenthands/seecat/internal/server"
)

func (c *cli) enrichCmd() *cobra.Command {
	var material, category string
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich and classify one material name",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			rec, err := a.Pipeline.Enrich(cmd.Context(), material, category)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVarP(&material, "material", "m", "", "Free-text material name")
	cmd.Flags().StringVarP(&category, "category", "k", "", "Catalog category code")
	return cmd
}

func (c *cli) attributesCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "attributes",
		Short: "List the attribute names of a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			names, err := a.Pipeline.Attributes(cmd.Context(), category)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), names)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "k", "", "Catalog category code")
	return cmd
}

func (c *cli) identityCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Show the NOUN/MODIFIER values configured for a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			mapping, err := a.Pipeline.IdentityOf(cmd.Context(), category)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), mapping)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "k", "", "Catalog category code")
	return cmd
}

func (c *cli) taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Query or load the UNSPSC taxonomy store",
	}

	lookup := &cobra.Command{
		Use:   "lookup CODE",
		Short: "Resolve one code to its name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			entry, found, err := a.Pipeline.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("code %s not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}

	search := &cobra.Command{
		Use:   "search PREFIX",
		Short: "List codes starting with PREFIX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			entries, err := a.Pipeline.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert a code/name TSV or CSV export into the taxonomy store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.importTaxonomy(cmd, args[0])
		},
	}

	cmd.AddCommand(lookup, search, importCmd)
	return cmd
}

func (c *cli) importTaxonomy(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sep := '\t'
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		sep = ','
	}
	entries, err := driver.ReadEntries(f, sep)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	a, err := c.app(cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	imp, ok := a.Store.(driver.Importer)
	if !ok {
		return driver.ErrImportUnsupported
	}
	n, err := imp.Upsert(cmd.Context(), entries)
	if err != nil {
		return err
	}
	c.logger.Info("taxonomy imported",
		zap.String("file", path),
		zap.String("backend", c.cfg.Taxonomy.Backend),
		zap.Int("entries", n),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", n)
	return nil
}

func (c *cli) serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				c.cfg.Server.Port = port
			}
			if !c.cfg.Logging.Development {
				gin.SetMode(gin.ReleaseMode)
			}
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			srv := server.NewServer(a.Pipeline, a.Metrics, c.cfg.Metrics.Path, c.logger)
			return server.Run(cmd.Context(), c.cfg.Server, srv.SetupRouter(), c.logger)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides config)")
	return cmd
}
