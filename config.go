package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind             string
	geoLookups       bool
	port             int
	prefix           string
	presenceInterval time.Duration
	profile          bool
	publicURL        string
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool
	waitTimeout      time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.presenceInterval < 0 {
		return fmt.Errorf("invalid presence interval: %s", c.presenceInterval)
	}
	if c.waitTimeout < 0 {
		return fmt.Errorf("invalid wait timeout: %s", c.waitTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("VERSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "versus",
		Short:         "A matchmaking and relay server for two-player browser games.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: VERSUS_BIND)")
	fs.BoolVar(&cfg.geoLookups, "geo-lookups", true, "look up player countries for matched-opponent info (env: VERSUS_GEO_LOOKUPS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: VERSUS_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: VERSUS_PREFIX)")
	fs.DurationVar(&cfg.presenceInterval, "presence-interval", 0, "coalesce online-count broadcasts to one per interval, 0 broadcasts immediately (env: VERSUS_PRESENCE_INTERVAL)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: VERSUS_PROFILE)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "public site URL encoded by the /qr endpoint (env: VERSUS_PUBLIC_URL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: VERSUS_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: VERSUS_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: VERSUS_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: VERSUS_VERSION)")
	fs.DurationVar(&cfg.waitTimeout, "wait-timeout", 0, "time before unmatched searchers are dropped from the queue, 0 waits forever (env: VERSUS_WAIT_TIMEOUT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("versus v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
