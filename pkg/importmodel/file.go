// Package importmodel defines the data model for precomputed import classification datasets.
package importmodel

// ImportType is the category a dataset producer assigned to one import target.
type ImportType string

// Known import categories.
const (
	TypePackageEntryPoint ImportType = "package entry point"
	TypePackageDeepImport ImportType = "package deep import"
	TypeFile              ImportType = "file"

	// TypeLegacyPackage is the single package category written by older dataset producers.
	TypeLegacyPackage ImportType = "package"
)

// Dataset maps a file identifier (usually a path) to the imports found in that file.
type Dataset map[string]FileRecord

// FileRecord holds the imports of one source file, keyed by specifier as written.
// A nil ImportSources means the field was absent or null in the input.
type FileRecord struct {
	ImportSources map[string]ImportInfo `json:"importSources" yaml:"importSources"`
}

// ImportInfo describes one resolved (or unresolved) import target.
type ImportInfo struct {
	Type       ImportType `json:"type"                 yaml:"type"`
	IsEsm      EsmFlag    `json:"isEsm,omitempty"      yaml:"isEsm,omitempty"`
	IsCjs      bool       `json:"isCjs,omitempty"      yaml:"isCjs,omitempty"`
	Unresolved bool       `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// ImportCount returns the number of ImportInfo entries across all records.
func (d Dataset) ImportCount() int {
	total := 0

	for _, record := range d {
		total += len(record.ImportSources)
	}

	return total
}
