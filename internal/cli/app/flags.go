package app

import "flag"

// ifSet returns &v when the flag name was given on the command line.
func ifSet[T any](fs *flag.FlagSet, name string, v T) *T {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return &v
}
