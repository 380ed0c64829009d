package retention

import (
	"os"

	"gopkg.in/yaml.v3"
)

// integrityDocument is the serialized shape spec.md describes for the
// integrity report: total file count, the corrupted subset, and every
// recomputed digest.
type integrityDocument struct {
	TotalFiles int               `yaml:"total_files"`
	Corrupted  []string          `yaml:"corrupted"`
	Digests    map[string]string `yaml:"digests"`
}

func writeIntegrityReport(path string, report *Report) error {
	doc := integrityDocument{
		TotalFiles: report.TotalFiles,
		Corrupted:  report.CorruptedFiles,
		Digests:    report.Digests,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
