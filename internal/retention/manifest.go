package retention

import (
	"os"
	"path/filepath"

	"github.com/wardenscan/warden/pkg/persist"
)

// manifestBasename holds the digest recorded for each report file the last
// time the integrity pass trusted it. A file with no manifest entry is
// trusted on first sight (its current digest becomes the recorded one);
// this is what lets the pass detect on-disk corruption between runs rather
// than needing every report writer to separately register a digest.
const manifestBasename = ".digests"

// manifestFileName is the on-disk name produced by manifestBasename plus the
// JSON codec's extension; enumerate() uses it to exclude the manifest from
// the set of report files it walks.
var manifestFileName = manifestBasename + persist.NewJSONCodec().Extension()

func loadManifest(resultsDir string) (map[string]string, error) {
	manifest := make(map[string]string)

	err := persist.LoadState(resultsDir, manifestBasename, persist.NewJSONCodec(), &manifest)
	if err != nil {
		// Missing or corrupt manifest shouldn't block retention; start clean
		// and let every file be re-trusted this pass.
		return make(map[string]string), nil
	}

	return manifest, nil
}

func saveManifest(resultsDir string, manifest map[string]string) error {
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return err
	}

	return persist.SaveState(resultsDir, manifestBasename, persist.NewJSONCodec(), &manifest)
}

// verifyEmbeddedDigest reports whether digest matches the manifest's
// recorded digest for path, trusting (and recording) it on first sight.
func verifyEmbeddedDigest(manifest map[string]string, path, digest string) bool {
	name := filepath.Base(path)

	recorded, known := manifest[name]
	if !known {
		manifest[name] = digest

		return true
	}

	return recorded == digest
}
