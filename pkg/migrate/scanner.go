package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var scriptName = regexp.MustCompile(`^V([0-9][0-9._]*)__(.+)\.sql$`)

// Script is a versioned migration file
type Script struct {
	Version     Version
	Description string
	Name        string
	Path        string
	Checksum    int32
	SQL         string
}

// Scan finds all versioned scripts below locations, sorted by version.
// Files not matching V<version>__<description>.sql are ignored.
func Scan(locations []string) ([]Script, error) {
	var scripts []Script
	seen := make(map[string]string)

	for _, location := range locations {
		location = strings.TrimPrefix(location, "filesystem:")
		err := filepath.WalkDir(location, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			m := scriptName.FindStringSubmatch(d.Name())
			if m == nil {
				return nil
			}

			version, err := ParseVersion(m[1])
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if prev, ok := seen[version.String()]; ok {
				return fmt.Errorf("%w: version %s found in %s and %s", ErrInvalidScript, version, prev, path)
			}
			seen[version.String()] = path

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			scripts = append(scripts, Script{
				Version:     version,
				Description: strings.ReplaceAll(m[2], "_", " "),
				Name:        d.Name(),
				Path:        path,
				Checksum:    Checksum(content),
				SQL:         string(content),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", location, err)
		}
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Version.Compare(scripts[j].Version) < 0
	})
	return scripts, nil
}

// Checksum is the CRC32 of the script lines without line terminators,
// compatible with the checksums Flyway stores.
func Checksum(content []byte) int32 {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	crc := crc32.NewIEEE()
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), len(content)+1)
	for scanner.Scan() {
		line := bytes.TrimSuffix(scanner.Bytes(), []byte("\r"))
		_, _ = crc.Write(line)
	}
	return int32(crc.Sum32())
}
