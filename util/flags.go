package util

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to the upper-cased flag name to build its environment variable.
const EnvPrefix = "BERRY_"

// SetFlagsFromEnvVars reads and updates persistent flag values from environment variables with prefix BERRY_.
// Flags explicitly set on the command line win over the environment.
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		envName := FlagNameToEnvVar(f.Name)
		value, present := os.LookupEnv(envName)
		if !present {
			return
		}

		if err := flags.Set(f.Name, value); err != nil {
			log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envName, err)
		}
	})
}

// FlagNameToEnvVar converts a flag name to its environment variable name
// replacing dashes by underscores and making the result uppercase
// E.g. data-dir -> BERRY_DATA_DIR
func FlagNameToEnvVar(cmdFlag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(cmdFlag, "-", "_"))
}
