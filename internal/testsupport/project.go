package testsupport

import (
	"path/filepath"
	"testing"
)

// SampleAsset is a minimal Unity ProjectSettings.asset carrying a date based
// product version.
const SampleAsset = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!129 &1
PlayerSettings:
  companyName: Example
  productName: Space Pigs
  bundleVersion: 2026.01.15.41
  AndroidBundleVersionCode: 41
`

// WriteProject lays out a project folder with the given shipit.yaml content
// and SampleAsset as its version file, and returns the folder.
func WriteProject(t testing.TB, settings string) string {
	t.Helper()

	dir := t.TempDir()
	WriteFile(t, filepath.Join(dir, "shipit.yaml"), settings)
	WriteFile(t, filepath.Join(dir, "ProjectSettings", "ProjectSettings.asset"), SampleAsset)
	return dir
}
