// Package typo flags words that are a close-but-not-exact match for a
// known-correct technical term, catching common misspellings that
// spell-checkers tuned for prose tend to miss. Every word on every line is
// checked; comment text is not told apart from code or string literals.
package typo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wardenscan/warden/internal/finding"
	"github.com/wardenscan/warden/pkg/levenshtein"
)

const maxFindingsPerFile = 200

// maxDistance bounds how aggressively fuzzy the match is: 1 catches a
// single dropped, doubled or substituted letter without also flagging
// unrelated short words. Two swapped letters are distance 2, so such a typo
// is caught only when it is listed in dictionary.
const maxDistance = 1

var wordPattern = regexp.MustCompile(`[A-Za-z]+`)

// dictionary maps a correct spelling to itself, and every known common
// misspelling maps to the same correct spelling; Analyze flags any word
// that, after lowercasing, lands within maxDistance of an entry it isn't
// already the correct spelling of.
var dictionary = map[string]string{
	"receive": "receive", "recieve": "receive",
	"separate": "separate", "seperate": "separate",
	"occurred": "occurred", "occured": "occurred",
	"length": "length", "lenght": "length",
	"definitely": "definitely", "definately": "definitely",
	"initialize": "initialize", "initalize": "initialize",
	"successful": "successful", "succesful": "successful",
	"existing": "existing", "existant": "existing",
	"dependency": "dependency", "dependancy": "dependency",
	"argument": "argument", "arguement": "argument",
	"response": "response", "reponse": "response",
	"threshold": "threshold", "treshold": "threshold",
	"override": "override", "overide": "override",
	"explicit": "explicit", "explicite": "explicit",
	"committed": "committed", "commited": "committed",
}

// Analyzer is line-local, so it is streaming-capable.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Name() string           { return "typo" }
func (a *Analyzer) SupportsStreaming() bool { return true }
func (a *Analyzer) ConcurrentSafe() bool    { return true }

func (a *Analyzer) Supports(path string) bool {
	return strings.HasSuffix(path, ".go") || strings.HasSuffix(path, ".py") ||
		strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".ts") ||
		strings.HasSuffix(path, ".java") || strings.HasSuffix(path, ".md")
}

func (a *Analyzer) Analyze(path string, content []byte, line int) ([]finding.Finding, error) {
	if line > 0 {
		return a.scanLine(path, line, string(content)), nil
	}

	var findings []finding.Finding

	for i, raw := range strings.Split(string(content), "\n") {
		if len(findings) >= maxFindingsPerFile {
			break
		}

		findings = append(findings, a.scanLine(path, i+1, raw)...)
	}

	return findings, nil
}

func (a *Analyzer) scanLine(path string, lineNo int, raw string) []finding.Finding {
	var findings []finding.Finding
	var ctx levenshtein.Context

	for _, word := range wordPattern.FindAllString(raw, -1) {
		if len(findings) >= maxFindingsPerFile {
			break
		}

		lower := strings.ToLower(word)
		if correct, ok := dictionary[lower]; ok {
			if lower == correct {
				continue // already the correct spelling
			}

			findings = append(findings, finding.New(a.Name(), "likely-misspelling", finding.SeverityInfo,
				path, lineNo, fmt.Sprintf("%q looks like a misspelling of %q", word, correct)))

			continue
		}

		if len(word) < 4 {
			continue // too short for fuzzy matching to be reliable
		}

		if correct, ok := nearestWithinDistance(&ctx, lower); ok {
			findings = append(findings, finding.New(a.Name(), "likely-misspelling", finding.SeverityInfo,
				path, lineNo, fmt.Sprintf("%q looks like a misspelling of %q", word, correct)))
		}
	}

	return findings
}

// nearestWithinDistance checks word against every distinct correct
// spelling in the dictionary; the dictionary is small enough that a linear
// scan per word is cheap relative to the I/O cost of reading the file.
func nearestWithinDistance(ctx *levenshtein.Context, word string) (string, bool) {
	for _, correct := range dictionary {
		if word == correct {
			return "", false
		}
	}

	for _, correct := range dictionary {
		if ctx.Distance(word, correct) <= maxDistance {
			return correct, true
		}
	}

	return "", false
}
