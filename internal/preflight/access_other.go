//go:build !unix

package preflight

import "os"

func accessRWX(path string) error {
	probe, err := os.CreateTemp(path, ".shipit-access-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
