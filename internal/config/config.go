package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".protect-cli" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".protect-cli")
	}

	viper.SetEnvPrefix("PROTECT")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in; a missing file is fine.
	_ = viper.ReadInConfig()
}

// SaveController persists the controller address and credentials so
// subsequent commands can connect without re-entering them. Session state
// is deliberately NOT saved: sessions are memory-resident and rebuilt on
// every process start.
func SaveController(address, username, password string) error {
	viper.Set("address", address)
	viper.Set("username", username)
	viper.Set("password", password)

	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return viper.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to the default path.
		home, _ := os.UserHomeDir()
		path := filepath.Join(home, ".protect-cli.yaml")
		return viper.WriteConfigAs(path)
	}
	return nil
}
