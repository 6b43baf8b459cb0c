package project

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"
)

// VersionInfo is the product identity read from the version file.
type VersionInfo struct {
	ProductName    string
	ProductVersion string
	BundleVersion  string
}

// The version file is a Unity ProjectSettings.asset. Its YAML uses custom tags
// that a generic decoder rejects, so the three keys are matched line by line.
var (
	productNameLine    = regexp.MustCompile(`(?m)^(\s*productName:[ \t]*)(.*?)\r?$`)
	productVersionLine = regexp.MustCompile(`(?m)^(\s*bundleVersion:[ \t]*)(.*?)\r?$`)
	bundleVersionLine  = regexp.MustCompile(`(?m)^(\s*AndroidBundleVersionCode:[ \t]*)(.*?)\r?$`)
)

// ReadVersionFile parses product name, product version and bundle version.
func ReadVersionFile(path string) (VersionInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return VersionInfo{}, fmt.Errorf("%w: version file %s not found", ErrInvalidSettings, path)
		}
		return VersionInfo{}, fmt.Errorf("%w: read version file: %w", ErrInvalidSettings, err)
	}
	info := VersionInfo{
		ProductName:    firstValue(productNameLine, data),
		ProductVersion: firstValue(productVersionLine, data),
		BundleVersion:  firstValue(bundleVersionLine, data),
	}
	if info.ProductVersion == "" || info.BundleVersion == "" {
		return info, fmt.Errorf("%w: %s has no bundleVersion or AndroidBundleVersionCode", ErrInvalidSettings, path)
	}
	return info, nil
}

func firstValue(re *regexp.Regexp, data []byte) string {
	m := re.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[2]))
}

// WriteVersionFile replaces the product and bundle versions in place. It
// reports whether the file content changed.
func WriteVersionFile(path, productVersion, bundleVersion string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	updated := replaceValue(productVersionLine, data, productVersion)
	updated = replaceValue(bundleVersionLine, updated, bundleVersion)
	if bytes.Equal(data, updated) {
		return false, nil
	}
	return true, writeFileKeepMode(path, updated)
}

func replaceValue(re *regexp.Regexp, data []byte, value string) []byte {
	replaced := false
	return re.ReplaceAllFunc(data, func(match []byte) []byte {
		if replaced {
			return match
		}
		replaced = true
		sub := re.FindSubmatch(match)
		suffix := ""
		if bytes.HasSuffix(match, []byte("\r")) {
			suffix = "\r"
		}
		return []byte(string(sub[1]) + value + suffix)
	})
}

// Build info files carry assignments such as
//
//	public const string CompiledOnDate = "2026-03-07 10:30";
//	public const string BundleVersion = "42";
var (
	compiledOnDateAssign = regexp.MustCompile(`(CompiledOnDate\s*=\s*")[^"]*(")`)
	bundleVersionAssign  = regexp.MustCompile(`(BundleVersion\s*=\s*")[^"]*(")`)
)

// UpdateBuildInfo stamps the compile date and bundle version into the build
// info source file. It reports whether the file content changed.
func UpdateBuildInfo(path string, compiled time.Time, bundleVersion string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if !compiledOnDateAssign.Match(data) && !bundleVersionAssign.Match(data) {
		return false, fmt.Errorf("%w: %s has no CompiledOnDate or BundleVersion assignment", ErrInvalidSettings, path)
	}
	updated := compiledOnDateAssign.ReplaceAll(data, []byte("${1}"+compiled.Format("2006-01-02 15:04")+"${2}"))
	updated = bundleVersionAssign.ReplaceAll(updated, []byte("${1}"+bundleVersion+"${2}"))
	if bytes.Equal(data, updated) {
		return false, nil
	}
	return true, writeFileKeepMode(path, updated)
}

func writeFileKeepMode(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}
