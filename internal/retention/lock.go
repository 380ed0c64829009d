package retention

import (
	"errors"
	"fmt"
	"os"

	"github.com/wardenscan/warden/internal/engerrs"
)

// lockFileName is the advisory lock preventing retention from running
// concurrently with an analysis writing into the same results directory.
const lockFileName = ".retention.lock"

// AcquireLock creates an exclusive lock file in resultsDir. The returned
// release function must be called when the caller is done. Stale locks
// (the owning process no longer exists) are not detected — matching the
// spec's plain "OS-level advisory lock file" requirement rather than a
// full PID-liveness check.
func AcquireLock(resultsDir string) (release func(), err error) {
	path := lockFileFor(resultsDir)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", engerrs.ErrRetentionLocked, path)
		}

		return nil, fmt.Errorf("retention: acquire lock: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { os.Remove(path) }, nil
}

func lockFileFor(resultsDir string) string {
	return resultsDir + string(os.PathSeparator) + lockFileName
}
