package archive

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"wizard/internal/artifact"
)

// Pack writes the entries of s as a deflate zip to w. Entry paths are made
// relative and cleaned; a repeated path gets a numeric suffix.
func Pack(w io.Writer, s artifact.ZipStructure, modified time.Time) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(s.Files))
	var written int64
	for _, e := range s.Files {
		name := entryName(e)
		if name == "" {
			continue
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = withSuffix(name, n+1)
		} else {
			seen[name] = 1
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("zip header %s: %w", name, err)
		}
		n, err := io.WriteString(fw, e.Content)
		if err != nil {
			return fmt.Errorf("zip write %s: %w", name, err)
		}
		written += int64(n)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	archiveBytes.Observe(float64(written))
	return nil
}

func entryName(e artifact.ZipEntry) string {
	p := e.Path
	if strings.TrimSpace(p) == "" {
		p = e.Name
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

func withSuffix(name string, n int) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + strconv.Itoa(n) + ext
}
