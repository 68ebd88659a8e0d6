package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/neuraphage/engram/internal/config"
	"github.com/neuraphage/engram/internal/daemon"
	"github.com/neuraphage/engram/internal/session"
	"github.com/neuraphage/engram/internal/types"
)

// workDir returns the directory discovery root for the current command:
// --dir if given, else the current working directory.
func workDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	return os.Getwd()
}

// storeDir resolves the on-disk store directory for the current command.
func storeDir() (string, error) {
	wd, err := workDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	return config.ResolveDir(wd), nil
}

// openHandle resolves the store directory and returns a session.Handle,
// preferring a running daemon and falling back to a direct session.
func openHandle() (session.Handle, error) {
	dir, err := storeDir()
	if err != nil {
		return nil, err
	}
	return daemon.OpenAuto(dir)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
