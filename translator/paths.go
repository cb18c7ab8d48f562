package translator

import "path/filepath"

// ResolveBinaryPath returns the inference child's executable path under the
// app data directory: bin/<serverFolder>/<binary>, mirroring how the model
// manager resolves the model file under models/.
func ResolveBinaryPath(appDataDir, serverFolder, binary string) string {
	return filepath.Join(appDataDir, "bin", serverFolder, binary)
}
