package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// OutputPathFromURL returns the final path segment of rawURL, or
// "download" when the URL has no usable file name.
func OutputPathFromURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(parsedURL.EscapedPath())
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" || name == "." || name == "/" || strings.ContainsAny(name, `/\`) {
		return "download"
	}
	return name
}

// ChunkPath names the temporary file holding chunk index of outputPath.
// It lives next to the output so a resumed run finds it again.
func ChunkPath(outputPath string, index int) string {
	return filepath.Join(filepath.Dir(outputPath), fmt.Sprintf("%s.part%d", filepath.Base(outputPath), index))
}

func ManifestPath(outputPath string) string {
	return outputPath + ManifestSuffix
}

// CleanFunction removes the chunk files and assembly manifest left behind
// by an interrupted or failed download of outputPath and returns the names
// it removed.
func CleanFunction(outputPath string) ([]string, error) {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		isPart := false
		if matches := ChunkIDRegex.FindStringSubmatch(name); len(matches) == 2 {
			isPart = name == fmt.Sprintf("%s.part%s", base, matches[1])
		}
		if !isPart && name != base+ManifestSuffix {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}
