package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/backsoul/trivia/pkg/notify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	adminDelay    time.Duration
	adminPassword string
	bind          string
	playerDelay   time.Duration
	port          int
	questions     string
	redisAddr     string
	redisDB       int
	redisPassword string
	verbose       bool
	version       bool
	webDir        string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.adminPassword == "" {
		return errors.New("--admin-password cannot be empty")
	}
	if c.playerDelay < 0 || c.adminDelay < 0 {
		return errors.New("sync delays cannot be negative")
	}
	if c.redisDB < 0 {
		return fmt.Errorf("invalid redis db: %d", c.redisDB)
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "trivia",
		Short:         "Team trivia game server with a player display and an admin console.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServeGame(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.DurationVar(&cfg.adminDelay, "admin-sync-delay", notify.DefaultAdminDelay, "debounce before the admin console is refreshed (env: QUIZ_ADMIN_SYNC_DELAY)")
	fs.StringVar(&cfg.adminPassword, "admin-password", "admin123", "shared secret for the admin console (env: QUIZ_ADMIN_PASSWORD)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZ_BIND)")
	fs.DurationVar(&cfg.playerDelay, "player-sync-delay", notify.DefaultPlayerDelay, "debounce before the player display is refreshed (env: QUIZ_PLAYER_SYNC_DELAY)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: QUIZ_PORT)")
	fs.StringVarP(&cfg.questions, "questions", "q", "", "JSON or YAML question bank to load at startup (env: QUIZ_QUESTIONS)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "mirror sync events to this Redis server; empty disables (env: QUIZ_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "Redis database number (env: QUIZ_REDIS_DB)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "Redis password (env: QUIZ_REDIS_PASSWORD)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: QUIZ_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: QUIZ_VERSION)")
	fs.StringVarP(&cfg.webDir, "web-dir", "w", "web", "directory holding player.html and admin.html (env: QUIZ_WEB_DIR)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("trivia v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
