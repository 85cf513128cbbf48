package deploy

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// StaticCollector copies the static asset tree into the directory the
// reverse proxy serves from. Existing files are overwritten so repeated
// runs converge on the source tree.
type StaticCollector struct {
	srcDir  string
	destDir string
	logger  *zap.Logger
}

func NewStaticCollector(srcDir, destDir string, logger *zap.Logger) *StaticCollector {
	return &StaticCollector{srcDir: srcDir, destDir: destDir, logger: logger}
}

// Collect walks the source tree and mirrors every regular file into the
// destination, returning the number of files copied.
func (s *StaticCollector) Collect() (int, error) {
	info, err := os.Stat(s.srcDir)
	if err != nil {
		return 0, fmt.Errorf("static source %s: %w", s.srcDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("static source %s is not a directory", s.srcDir)
	}

	copied := 0
	err = filepath.WalkDir(s.srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.srcDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(s.destDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, dest); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, err
	}

	s.logger.Info("Collected static assets",
		zap.Int("files", copied),
		zap.String("dest", s.destDir),
	)
	return copied, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
