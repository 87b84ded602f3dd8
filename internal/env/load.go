package env

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads a dotenv file (e.g. ".env") and exports each KEY=VALUE pair that
// is not already set, so CARSIM_* overrides can live next to the binary.
// Keys are exported upper-case. A missing file is not an error.
func Load(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
