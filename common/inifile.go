package common

import (
	"errors"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"
)

// Defaults are read from ~/.slurm2sql at startup.  Command line options that are left at
// their zero value pick up the corresponding ini field, if present.

// MT: Constant after initialization
var (
	p              = ini.NewParser()
	store          *ini.Store
	database       = p.AddSection("database")
	DatabaseTarget = database.AddString("target")
	upstream       = p.AddSection("sacct")
	SacctCommand   = upstream.AddString("command")
	SacctCluster   = upstream.AddString("cluster")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".slurm2sql")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	store, err = p.Parse(input)
	if err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
		return
	}
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}
