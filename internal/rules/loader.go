// Package rules loads Sigma detection rules from disk and checks them for
// the structural problems that surface later as confusing conversion errors.
package rules

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes reported by the loader.
const (
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeScanError   = "SCAN_ERROR"
	ErrCodeNoFiles     = "NO_FILES"
	ErrCodeReadFailed  = "READ_FAILED"
	ErrCodeParseFailed = "PARSE_FAILED"
	ErrCodeInvalid     = "INVALID_RULE"
)

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Rule is a parsed rule plus its provenance.
type Rule struct {
	sigma.Rule

	Path string
	Raw  []byte
}

// LoadResult contains the rules gathered from a path.
type LoadResult struct {
	Rules     []Rule
	FileCount int
	Warnings  []Problem
}

// Load reads Sigma rules from a file or directory. Directories are walked
// recursively for .yml and .yaml files in lexical order. Structural
// validation problems are errors; stylistic ones are collected as warnings.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Path: path, Message: "no such file or directory"}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}}
	}

	var files []string
	if info.IsDir() {
		files, err = findRuleFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Path: path, Message: err.Error()}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Path: path, Message: "no rule files found"}}
		}
	} else {
		files = []string{path}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error

	for _, file := range files {
		rule, loadErr := loadFile(file)
		if loadErr != nil {
			errs = append(errs, loadErr)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		problems := Validate(rule.Rule)
		failed := false
		for _, p := range problems {
			if p.Warning {
				result.Warnings = append(result.Warnings, p.withPath(file))
				continue
			}
			failed = true
			errs = append(errs, &LoadError{Code: ErrCodeInvalid, Path: file, Message: p.Message})
		}
		if failed {
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		result.Rules = append(result.Rules, rule)
	}

	slog.Debug("rules loaded",
		"path", path,
		"files", result.FileCount,
		"rules", len(result.Rules),
		"errors", len(errs))
	return result, errs
}

func loadFile(path string) (Rule, *LoadError) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rule{}, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: err.Error()}
	}
	parsed, err := sigma.ParseRule(raw)
	if err != nil {
		return Rule{}, &LoadError{Code: ErrCodeParseFailed, Path: path, Message: err.Error()}
	}
	return Rule{Rule: parsed, Path: path, Raw: raw}, nil
}

func findRuleFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
