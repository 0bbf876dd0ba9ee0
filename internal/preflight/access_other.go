//go:build !unix

package preflight

import "os"

// checkAccess probes writability by creating and removing a scratch file.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".batchenc-preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
