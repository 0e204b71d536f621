package main

import (
	"fmt"

	"github.com/spf13/pflag"
)

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}

// applyArchiveFlags maps the archive flags onto config keys. An explicit
// --archive-mode wins over the -A and -a shorthands.
func applyArchiveFlags(flags *pflag.FlagSet) error {
	mode := ""
	switch {
	case flags.Changed("archive-mode"):
		mode, _ = flags.GetString("archive-mode")
	case mustBool(flags, "strong-archive"):
		mode = "strong"
	case mustBool(flags, "archive"):
		mode = "standard"
	}
	if mode != "" {
		v.Set("archive.mode", mode)
	}

	for _, name := range []string{"include", "exclude"} {
		if !flags.Changed(name) {
			continue
		}
		codes, err := flags.GetIntSlice(name)
		if err != nil {
			return err
		}
		v.Set("archive."+name, codes)
	}
	return nil
}

func mustBool(flags *pflag.FlagSet, name string) bool {
	b, _ := flags.GetBool(name)
	return b
}
