package backend

import "os"

func writeSized(path string, n int) error {
	return os.WriteFile(path, make([]byte, n), 0o600)
}
