package conf

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BindFlags binds command flags to viper keys so a flag given on the command
// line takes precedence over the config file. keys maps viper key to flag name.
func BindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			return fmt.Errorf("flag %q is not defined on %s", name, cmd.Name())
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
