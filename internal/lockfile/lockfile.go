// Package lockfile parses, generates, merges, and queries npm-lockfile-v3
// shaped dependency graphs, and flattens them into installable package
// records. The JSON shape is a round-trip target for interoperability with
// real npm tooling.
package lockfile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conneroisu/sandcastle/internal/errors"
)

// Version always emitted by Generate.
const Version = 3

const nodeModules = "node_modules/"

// PackageEntry is one package occurrence in the lockfile tree. The root
// entry (key "") never carries Resolved or Integrity.
type PackageEntry struct {
	Version      string            `json:"version,omitempty"`
	Resolved     string            `json:"resolved,omitempty"`
	Integrity    string            `json:"integrity,omitempty"`
	Dev          bool              `json:"dev,omitempty"`
	Optional     bool              `json:"optional,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Lockfile mirrors the npm lockfile v3 on-disk shape. Package keys follow
// npm's nesting convention: "" is the project root and
// "node_modules/<name>[/node_modules/<name>...]" is a nested dependency.
type Lockfile struct {
	Name            string                  `json:"name"`
	Version         string                  `json:"version,omitempty"`
	LockfileVersion int                     `json:"lockfileVersion"`
	Packages        map[string]PackageEntry `json:"packages"`
}

// FlatDependency is one denormalized record per installed package
// occurrence, independent of its position in the nested tree.
type FlatDependency struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Resolved  string `json:"resolved,omitempty"`
	Integrity string `json:"integrity,omitempty"`
	Path      string `json:"path"`
}

// ParseOptions controls Parse error tolerance.
type ParseOptions struct {
	// Strict makes malformed JSON a hard failure instead of degrading to a
	// placeholder lockfile plus a warning.
	Strict bool
}

// Parse decodes lockfile content. In non-strict mode malformed JSON yields a
// minimal placeholder lockfile and a warning, letting dependency state
// degrade to best-guess rather than blocking; in strict mode it fails.
// Absent fields default rather than fail.
func Parse(content []byte, opts ParseOptions) (*Lockfile, []string, error) {
	var lf Lockfile
	if err := json.Unmarshal(content, &lf); err != nil {
		if opts.Strict {
			return nil, nil, errors.NewLockfile(errors.CodeBadJSON, "parsing lockfile").WithCause(err)
		}
		placeholder := &Lockfile{
			Name:            "unknown",
			LockfileVersion: Version,
			Packages:        map[string]PackageEntry{},
		}
		warning := fmt.Sprintf("Invalid JSON in lockfile: %v", err)
		return placeholder, []string{warning}, nil
	}

	var warnings []string
	if lf.Packages == nil {
		lf.Packages = map[string]PackageEntry{}
		warnings = append(warnings, "lockfile has no packages section")
	}
	if lf.LockfileVersion != 0 && (lf.LockfileVersion < 1 || lf.LockfileVersion > Version) {
		warnings = append(warnings, fmt.Sprintf("unsupported lockfileVersion %d, treating as v%d", lf.LockfileVersion, Version))
	}

	return &lf, warnings, nil
}

// Generate builds a v3 lockfile from flat dependency records keyed by their
// lockfile paths. The root entry is synthesized without resolved/integrity.
func Generate(name, version string, deps map[string]FlatDependency) *Lockfile {
	packages := make(map[string]PackageEntry, len(deps)+1)
	packages[""] = PackageEntry{Version: version}

	for path, dep := range deps {
		packages[path] = PackageEntry{
			Version:   dep.Version,
			Resolved:  dep.Resolved,
			Integrity: dep.Integrity,
		}
	}

	return &Lockfile{
		Name:            name,
		Version:         version,
		LockfileVersion: Version,
		Packages:        packages,
	}
}

// PackageName derives the package name from a lockfile path: the portion
// after the last "node_modules/" segment, which keeps scoped names like
// "@scope/name" intact.
func PackageName(path string) string {
	idx := strings.LastIndex(path, nodeModules)
	if idx < 0 {
		return path
	}
	return path[idx+len(nodeModules):]
}

// ExtractFlatDeps flattens every non-root package entry into a
// FlatDependency keyed by its lockfile path. The root entry is always
// excluded.
func ExtractFlatDeps(lf *Lockfile) map[string]FlatDependency {
	deps := make(map[string]FlatDependency, len(lf.Packages))
	for path, entry := range lf.Packages {
		if path == "" {
			continue
		}
		deps[path] = FlatDependency{
			Name:      PackageName(path),
			Version:   entry.Version,
			Resolved:  entry.Resolved,
			Integrity: entry.Integrity,
			Path:      path,
		}
	}
	return deps
}

// HasPackage reports whether name is present at any nesting level,
// optionally constrained to an exact version.
func HasPackage(lf *Lockfile, name string, version ...string) bool {
	for path, entry := range lf.Packages {
		if path == "" || PackageName(path) != name {
			continue
		}
		if len(version) == 0 || entry.Version == version[0] {
			return true
		}
	}
	return false
}

// PackageVersions returns every distinct resolved version of name across all
// nesting levels. The same name may resolve differently at different depths.
func PackageVersions(lf *Lockfile, name string) []string {
	seen := make(map[string]struct{})
	var versions []string
	for path, entry := range lf.Packages {
		if path == "" || PackageName(path) != name {
			continue
		}
		if _, dup := seen[entry.Version]; dup {
			continue
		}
		seen[entry.Version] = struct{}{}
		versions = append(versions, entry.Version)
	}
	return versions
}

// Merge overlays update onto base: update's scalar fields win and packages
// form a key-wise union where update's entry wins on conflicts. This is an
// intentionally shallow merge; conflicting dependencies sub-maps inside a
// shared entry are not reconciled.
func Merge(base, update *Lockfile) *Lockfile {
	merged := &Lockfile{
		Name:            base.Name,
		Version:         update.Version,
		LockfileVersion: update.LockfileVersion,
		Packages:        make(map[string]PackageEntry, len(base.Packages)+len(update.Packages)),
	}
	if update.Name != "" {
		merged.Name = update.Name
	}

	for path, entry := range base.Packages {
		merged.Packages[path] = entry
	}
	for path, entry := range update.Packages {
		merged.Packages[path] = entry
	}

	return merged
}

// Stringify renders the lockfile as deterministic, human-diffable JSON:
// stable field order, sorted package keys, 2-space indent. Suitable as
// durable project state.
func Stringify(lf *Lockfile) (string, error) {
	out, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return "", errors.NewLockfile(errors.CodeBadJSON, "encoding lockfile").WithCause(err)
	}
	return string(out) + "\n", nil
}
