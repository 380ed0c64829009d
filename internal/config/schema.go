package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wardenscan/warden/internal/engerrs"
)

// schemaDocument is a minimal structural schema: it catches type mistakes
// (a string where a number belongs) before viper's looser Unmarshal would
// silently zero-value them. Unknown sections and keys are allowed.
const schemaDocument = `{
  "type": "object",
  "additionalProperties": true,
  "properties": {
    "general": {
      "type": "object",
      "properties": {
        "max_file_size_bytes": {"type": "number"},
        "streaming_threshold_bytes": {"type": "number"},
        "max_workers": {"type": "number"},
        "follow_symlinks": {"type": "boolean"},
        "watch": {"type": "boolean"},
        "paths": {"type": "array", "items": {"type": "string"}},
        "exclude_patterns": {"type": "array", "items": {"type": "string"}},
        "include_extensions": {"type": "array", "items": {"type": "string"}}
      }
    },
    "validation": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "accept_threshold": {"type": "number"},
        "review_threshold": {"type": "number"},
        "dismiss_threshold": {"type": "number"}
      }
    },
    "retention": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "results_dir": {"type": "string"},
        "backup_dir": {"type": "string"},
        "max_total_size_bytes": {"type": "number"},
        "min_results_to_keep": {"type": "number"},
        "integrity_report_path": {"type": "string"}
      }
    },
    "cache": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "path": {"type": "string"}
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string"},
        "format": {"type": "string"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaDocument)

// validateSchema checks the raw, already-merged (defaults + file + env)
// settings map against schemaDocument, returning every violation joined
// together with its JSON-pointer-ish field path so a malformed config fails
// fast and legibly instead of surfacing as a confusing zero value deep in
// the pipeline.
func validateSchema(settings map[string]any) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("config: marshal for schema check: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}

	return fmt.Errorf("%w: %s", engerrs.ErrConfigSchemaFail, strings.Join(msgs, "; "))
}
