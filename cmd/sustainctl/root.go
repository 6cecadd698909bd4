package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sustain_score_app_go/db"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries the settings shared by every command
type cli struct {
	v *viper.Viper
}

// runtime is an opened record store with its taxonomy loaded
type runtime struct {
	taxonomy *services.TaxonomyService
	projects *services.ProjectService
	close    func()
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "sustainctl",
		Short:         "Score sustainability assessments and inspect project records.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .sustainctl.yaml in . or $HOME)")
	flags.String("db-path", "db/app.db", "sqlite database holding project records")
	flags.String("db-driver", db.DriverCGO, "sqlite driver: sqlite3 (cgo) or sqlite (pure Go)")
	flags.String("environment", "production", "controls database log verbosity")
	flags.String("taxonomy", "", "taxonomy YAML document (default built-in)")
	flags.Bool("no-color", false, "disable colored output")

	root.AddCommand(
		c.newScoreCmd(),
		c.newTaxonomyCmd(),
		c.newProjectsCmd(),
		c.newReferenceCmd(),
		c.newMCPCmd(),
	)
	return root
}

// initConfig layers the config file and SUSTAINCTL_ variables under the flags
func (c *cli) initConfig(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if configFile := c.v.GetString("config"); configFile != "" {
		c.v.SetConfigFile(configFile)
	} else {
		c.v.SetConfigName(".sustainctl")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME")
	}
	c.v.SetEnvPrefix("SUSTAINCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if c.v.GetBool("no-color") {
		color.NoColor = true
	}
	return nil
}

// seed returns the taxonomy named by --taxonomy, or the built-in one
func (c *cli) seed() (*scoring.Taxonomy, error) {
	return services.LoadTaxonomySeed(c.v.GetString("taxonomy"))
}

// open connects to the record store and loads the current taxonomy. gorm
// logs to stdout, so callers that own stdout pass quiet.
func (c *cli) open(ctx context.Context, quiet bool) (*runtime, error) {
	env := c.v.GetString("environment")
	if quiet {
		env = "test"
	}
	conn, err := db.Open(c.v.GetString("db-path"), c.v.GetString("db-driver"), env)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := conn.AutoMigrate(&models.Project{}, &models.TaxonomyVersion{}, &models.AuditLog{}); err != nil {
		closeDB()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	seed, err := c.seed()
	if err != nil {
		closeDB()
		return nil, err
	}
	taxonomy := services.NewTaxonomyService(conn)
	if err := taxonomy.Load(ctx, seed); err != nil {
		closeDB()
		return nil, err
	}

	return &runtime{
		taxonomy: taxonomy,
		projects: services.NewProjectService(services.NewGormProjectStore(conn), taxonomy, conn),
		close:    closeDB,
	}, nil
}
