package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"acspop/internal/platform/config"
	pstrings "acspop/pkg/platform/strings"
)

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "acspop",
		Short: "acspop standardizes ACS population extracts into breakdown relations.",
		Long: `acspop reads American Community Survey extracts for the state and
county levels, normalizes their age brackets and race categories, and
publishes the by_race, by_sex_age_race, by_sex_age, by_age and by_sex
relations of each level.

Configuration is read from the environment. Flags override it.
`,
		SilenceUsage: true,
	}
	flags := rc.PersistentFlags()
	flags.String("log-level", "", "Log level: debug, info, warn or error.")
	flags.String("log-format", "", "Log format: json or text.")
	flags.String("release", "", "ACS release tag used to namespace cached variable maps.")
	flags.String("data-dir", "", "Directory holding one JSON extract per concept and level.")
	flags.String("variables", "", "Path to the release's variables.json document.")
	flags.String("sink", "", "Where relations are published: memory or postgres.")
	flags.String("database-url", "", "Postgres connection string for the postgres sink.")
	flags.String("redis-url", "", "Redis URL caching resolved variable maps. Empty disables the cache.")
	flags.StringSlice("kafka-brokers", nil, "Kafka seed brokers for publication events. Empty disables events.")
	flags.String("kafka-topic", "", "Kafka topic for publication events.")
	flags.StringSlice("levels", nil, "Geography levels to run, in order.")
	flags.Int("parallelism", -1, "Maximum concurrent level runs; 0 runs all at once.")

	rc.AddCommand(newIngestCommand(stdin, stdout, stderr))
	rc.AddCommand(newServeCommand(stdin, stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return config.Config{}, err
	}
	if err := applyFlags(&cfg, flags); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	strs := map[string]*string{
		"log-level":    &cfg.Log.Level,
		"log-format":   &cfg.Log.Format,
		"release":      &cfg.ACS.Release,
		"data-dir":     &cfg.ACS.DataDir,
		"variables":    &cfg.ACS.VariablesFile,
		"sink":         &cfg.Sink,
		"database-url": &cfg.Database.URL,
		"redis-url":    &cfg.Redis.URL,
		"kafka-topic":  &cfg.Kafka.Topic,
		"addr":         &cfg.Server.Addr,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed("kafka-brokers") {
		brokers, err := flags.GetStringSlice("kafka-brokers")
		if err != nil {
			return err
		}
		cfg.Kafka.Brokers = pstrings.DedupeAndTrim(brokers)
	}
	if flags.Changed("levels") {
		levels, err := flags.GetStringSlice("levels")
		if err != nil {
			return err
		}
		cfg.Levels = pstrings.DedupeAndTrimLower(levels)
	}
	if flags.Changed("parallelism") {
		n, err := flags.GetInt("parallelism")
		if err != nil {
			return err
		}
		cfg.Parallelism = n
	}
	return nil
}
