package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type importRef struct {
	file string
	imp  string
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)

	var violations []string
	for _, ref := range walkImports(t, root) {
		layer := layerFor(ref.file)
		for _, bad := range disallowedImports(modulePath, layer) {
			if strings.HasPrefix(ref.imp, bad) {
				violations = append(violations, fmt.Sprintf("- %s imports %q (disallowed: %q)", ref.file, ref.imp, bad))
				break
			}
		}
	}
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(violations, "\n"))
	}
}

// Payment rules must stay usable from upictl without a database or HTTP stack.
func TestPaymentsStayInfrastructureFree(t *testing.T) {
	root, _ := moduleRoot(t)

	banned := []string{
		"gorm.io/",
		"github.com/gin-gonic/",
		"github.com/redis/",
		"go.opentelemetry.io/",
	}
	var violations []string
	for _, ref := range walkImports(t, root) {
		if !strings.HasPrefix(ref.file, "internal/payments/") {
			continue
		}
		for _, bad := range banned {
			if strings.HasPrefix(ref.imp, bad) {
				violations = append(violations, fmt.Sprintf("- %s imports %q", ref.file, ref.imp))
				break
			}
		}
	}
	if len(violations) > 0 {
		t.Fatalf("internal/payments must not depend on infrastructure:\n%s", strings.Join(violations, "\n"))
	}
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/payments/"):
		return "payments"
	case strings.HasPrefix(rel, "internal/domain/"), strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/jobs/"):
		return "jobs"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	internal := modulePath + "/internal/"
	switch layer {
	case "platform":
		return []string{
			internal + "payments/",
			internal + "domain/",
			internal + "data/",
			internal + "services",
			internal + "http",
			internal + "jobs/",
			internal + "app",
		}
	case "payments":
		return []string{
			internal + "domain/",
			internal + "data/",
			internal + "services",
			internal + "http",
			internal + "jobs/",
			internal + "app",
		}
	case "data":
		return []string{
			internal + "services",
			internal + "http",
			internal + "jobs/",
			internal + "app",
		}
	case "services":
		return []string{
			internal + "http",
			internal + "jobs/",
			internal + "app",
		}
	case "jobs":
		return []string{
			internal + "http",
			internal + "app",
		}
	default:
		return nil
	}
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

func walkImports(t *testing.T, root string) []importRef {
	t.Helper()
	fset := token.NewFileSet()
	var refs []importRef
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			refs = append(refs, importRef{file: rel, imp: imp})
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return refs
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
