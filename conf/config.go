package conf

/*
   Package conf wraps viper for the CRV app. Configuration comes from an env
   file when one is present (local development) and falls back to the process
   environment otherwise (deployed environments only ship environment
   variables).

   Assumptions:
   1. The configuration file is an env file.
   2. Once loaded, configuration stays immutable for the lifetime of the
      process. SetEnv/UnsetEnv exist for tests only.
*/

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

// An instance of the viper struct containing the conf information. Only made
// accessible through the public functions GetEnv, LookupEnv, SetEnv, UnsetEnv.
var envVars viper.Viper

const (
	configgood    uint8 = 0
	configbad     uint8 = 1
	noconfigfound uint8 = 2
)

var state uint8 = configgood

// setup builds the viper instance backing this package. Called once from
// init().
func setup(dir string) *viper.Viper {
	var v = viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	// Viper is lazy, do the read and parse of the config file
	if err := v.ReadInConfig(); err != nil {
		state = configbad
	}

	return v
}

func init() {
	// Possible config file locations: local development and deployed
	// environments respectively.
	var locationSlice = [2]string{
		"/go/src/github.com/claimrecon/crv-app/shared_files/decrypted",
		"/etc/crv",
	}

	if success, loc := findEnv(locationSlice[:]); success {
		envVars = *setup(loc)
	} else {
		state = noconfigfound
	}
}

// findEnv walks the candidate locations and reports the first one containing
// a local.env file. If none is found the package serves plain environment
// variables.
func findEnv(location []string) (bool, string) {
	if _, err := os.Stat(location[0] + "/local.env"); err == nil {
		return true, location[0]
	}

	if len(location) == 1 {
		return false, ""
	}

	return findEnv(location[1:])
}

// GetEnv retrieves the value stored in conf. If it does not exist, the empty
// string is returned.
func GetEnv(key string) string {
	if state == configgood {
		var value = envVars.GetString(key)

		// Even if the config file loaded, a key missing from conf may still
		// live in the environment. Copy it over to prevent additional OS
		// calls; UnsetEnv removes it from both places.
		if value == "" {
			v, ok := os.LookupEnv(key)
			if ok {
				test := &testing.T{}
				var _ = SetEnv(test, key, v)
			}
			return v
		}

		return value
	}

	return os.Getenv(key)
}

// LookupEnv augments os.LookupEnv by checking the viper struct first.
func LookupEnv(key string) (string, bool) {
	if state == configgood {
		if value := envVars.Get(key); value != nil && value != "" {
			return value.(string), true
		}
		if v, exist := os.LookupEnv(key); exist {
			test := &testing.T{}
			var _ = SetEnv(test, key, v)
			return v, exist
		}

		return "", false
	}

	return os.LookupEnv(key)
}

// SetEnv adds a key value into conf. This function should only be used inside
// this package or in testing. The protect parameter is *testing.T to ensure
// developers knowingly use it in the appropriate scope.
func SetEnv(protect *testing.T, key string, value string) error {
	var err error

	if state == configgood {
		envVars.Set(key, value)
	} else {
		err = os.Setenv(key, value)
	}

	return err
}

// UnsetEnv "unsets" a variable. Like SetEnv, test scope only.
func UnsetEnv(protect *testing.T, key string) error {
	if state == configgood {
		envVars.Set(key, "")
	}

	// The variable may also have been copied into conf from the environment
	// by GetEnv, so clear both.
	return os.Unsetenv(key)
}
