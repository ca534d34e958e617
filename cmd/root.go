package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lequal/sonarqube-verify/internal/config"
)

// EnvPrefix prefixes the environment variable of every flag: --admin-password is SONARQUBE_ADMIN_PASSWORD.
const EnvPrefix = "SONARQUBE"

// bareEnv maps flags to unprefixed variables still honored for compatibility.
var bareEnv = map[string]string{
	"run": "RUN",
}

func NewRootCommand(cfg *config.Configuration) *cobra.Command {
	root := &cobra.Command{
		Use:           "sonarqube-verify",
		Short:         "Verify the configuration of a lequal/sonarqube server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: cobrautil.CommandStack(
			bindEnvironment,
			setupLogging(cfg),
		),
	}

	root.PersistentFlags().StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: console or json")

	root.AddCommand(
		NewRunCommand(cfg),
		NewComposeCommand(cfg),
		NewHistoryCommand(cfg),
	)
	return root
}

// setupViperForEnvVars configures viper to read environment variables with the given prefix
func setupViperForEnvVars(envPrefix string) {
	viper.Reset()
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func bindEnvironment(cmd *cobra.Command, _ []string) error {
	setupViperForEnvVars(EnvPrefix)
	cobraflags.PresetRequiredFlags(EnvPrefix, make(map[*pflag.Flag]bool), cmd)
	return applyBareEnvironment(cmd)
}

// applyBareEnvironment sets the flags of bareEnv from their unprefixed variable
// unless the flag or its prefixed variable is set.
func applyBareEnvironment(cmd *cobra.Command) error {
	for name, env := range bareEnv {
		f := cmd.Flags().Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(name)); ok {
			continue
		}
		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", env, err)
		}
	}
	return nil
}
