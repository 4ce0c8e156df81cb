package conf

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	cmd.Flags().String("probe-listen", "", "")
	cmd.PersistentFlags().Int("probe-threads", 0, "")

	require.NoError(t, BindFlags(cmd, map[string]string{
		"probetest.listen":  "probe-listen",
		"probetest.threads": "probe-threads",
	}))

	require.NoError(t, cmd.Flags().Set("probe-listen", ":9090"))
	require.NoError(t, cmd.PersistentFlags().Set("probe-threads", "3"))

	assert.Equal(t, ":9090", viper.GetString("probetest.listen"))
	assert.Equal(t, 3, viper.GetInt("probetest.threads"))
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	err := BindFlags(cmd, map[string]string{"probetest.missing": "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `flag "missing" is not defined on probe`)
}
