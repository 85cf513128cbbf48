package i18n

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// keyPattern matches catalog key literals in source: i18n.T(...) and
// catalog.T(...) calls plus template {{ t "key" }} actions.
var keyPattern = regexp.MustCompile(`(?:\.T\(\s*[a-zA-Z_][a-zA-Z0-9_.]*,\s*|\{\{\s*t\s+)"([a-z0-9_.]+)"`)

// CompileLocales converts every <lang>.toml file in localesDir into the
// compact <lang>.json form under catalogDir. Nested TOML tables become
// dotted keys. Returns the number of compiled languages.
func CompileLocales(localesDir, catalogDir string) (int, error) {
	entries, err := os.ReadDir(localesDir)
	if err != nil {
		return 0, fmt.Errorf("read locales directory: %w", err)
	}

	if err := os.MkdirAll(catalogDir, 0755); err != nil {
		return 0, fmt.Errorf("create catalog directory: %w", err)
	}

	compiled := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".toml")

		msgs, err := readLocaleFile(filepath.Join(localesDir, entry.Name()))
		if err != nil {
			return compiled, fmt.Errorf("locale %s: %w", lang, err)
		}

		data, err := json.MarshalIndent(msgs, "", "  ")
		if err != nil {
			return compiled, fmt.Errorf("locale %s: %w", lang, err)
		}

		out := filepath.Join(catalogDir, lang+".json")
		if err := os.WriteFile(out, data, 0644); err != nil {
			return compiled, fmt.Errorf("write catalog %s: %w", out, err)
		}
		compiled++
	}

	if compiled == 0 {
		return 0, fmt.Errorf("no .toml locale files found in %s", localesDir)
	}
	return compiled, nil
}

// readLocaleFile parses a TOML locale file into flat dotted keys
func readLocaleFile(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	flat := make(map[string]string)
	for _, key := range v.AllKeys() {
		flat[key] = v.GetString(key)
	}
	return flat, nil
}

// ExtractKeys scans Go sources and templates under the given roots for
// catalog key literals. Keys are returned sorted and deduplicated.
func ExtractKeys(roots ...string) ([]string, error) {
	seen := make(map[string]struct{})

	for _, root := range roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == "vendor" || strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}

			switch filepath.Ext(p) {
			case ".go", ".html", ".tmpl":
			default:
				return nil
			}
			if strings.HasSuffix(p, "_test.go") {
				return nil
			}

			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			for _, m := range keyPattern.FindAllSubmatch(data, -1) {
				seen[string(m[1])] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// UpdateLocales appends any missing extracted keys to each language's TOML
// file with an empty value so translators can fill them in. Existing
// translations are never touched. Returns the number of keys added across
// all languages.
func UpdateLocales(localesDir string, languages, keys []string) (int, error) {
	if err := os.MkdirAll(localesDir, 0755); err != nil {
		return 0, fmt.Errorf("create locales directory: %w", err)
	}

	added := 0
	for _, lang := range languages {
		path := filepath.Join(localesDir, lang+".toml")

		existing := map[string]string{}
		if _, err := os.Stat(path); err == nil {
			existing, err = readLocaleFile(path)
			if err != nil {
				return added, fmt.Errorf("locale %s: %w", lang, err)
			}
		}

		var missing []string
		for _, key := range keys {
			if _, ok := existing[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) == 0 {
			continue
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return added, fmt.Errorf("open locale %s: %w", lang, err)
		}
		for _, key := range missing {
			if _, err := fmt.Fprintf(f, "%q = \"\"\n", key); err != nil {
				f.Close()
				return added, fmt.Errorf("write locale %s: %w", lang, err)
			}
			added++
		}
		if err := f.Close(); err != nil {
			return added, err
		}
	}

	return added, nil
}
