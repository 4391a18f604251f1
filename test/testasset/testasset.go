// Package testasset recognises the test run attachments uploaded next to the report.
package testasset

import (
	"path/filepath"
	"slices"
	"strings"
)

// AssetTypes are the extensions of the attachments `dotnet test` collects into the results folder.
var AssetTypes = []string{".jpg", ".jpeg", ".png", ".txt", ".log", ".mp4", ".webm", ".coverage", ".dmp"}

// IsSupportedAssetType ...
func IsSupportedAssetType(fileName string) bool {
	ext := filepath.Ext(fileName)
	return slices.Contains(AssetTypes, strings.ToLower(ext))
}
