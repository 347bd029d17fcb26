package blob

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyCoreWiresInfra ensures the engine packages stay backend-agnostic:
// only internal/core and the cmd entrypoints may import the infra-backed
// store implementations. Everything else depends on the interfaces in
// pkg/domain and internal/blob.
func TestOnlyCoreWiresInfra(t *testing.T) {
	infraPrefix := "mentormatch/internal/infra"
	allowedPrefixes := []string{
		"mentormatch/internal/core",
		"mentormatch/internal/infra",
		"mentormatch/cmd",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "mentormatch/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})

	for _, pkg := range pkgs {
		if allowed(pkg.PkgPath, allowedPrefixes) {
			continue
		}
		for importPath := range pkg.Imports {
			if isInfraImport(importPath, infraPrefix) {
				pos := filepath.Join(pkg.PkgPath, "...")
				seen[pos+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of infra package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of infra packages", len(violations))
	}
}

func allowed(pkgPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if pkgPath == p || strings.HasPrefix(pkgPath, p+"/") {
			return true
		}
	}
	return false
}

func isInfraImport(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
