package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// mustBind binds config keys to flags. Flags are declared next to the call,
// so a missing one is a programming error.
func mustBind(v *viper.Viper, keys map[string]string, flags *pflag.FlagSet) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
