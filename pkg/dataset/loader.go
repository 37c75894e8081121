// Package dataset loads precomputed import classification datasets from disk.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/importmodel"
)

// Sentinel errors.
var (
	ErrDecode               = errors.New("decode dataset")
	ErrMissingImportSources = errors.New("file record has no importSources")
	ErrMissingType          = errors.New("import has no type")
	ErrSchemaInvalid        = errors.New("dataset does not match schema")
)

// lz4FrameMagic is the little-endian LZ4 frame magic number 0x184D2204.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}

// Encoding identifies the serialization of the decompressed dataset.
type Encoding string

// Supported encodings.
const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// Options controls how a dataset is loaded.
type Options struct {
	// Lenient drops malformed records and imports instead of failing.
	Lenient bool

	// ValidateSchema checks the raw document against the embedded JSON schema.
	ValidateSchema bool

	// Logger receives warnings about dropped records. Nil uses slog.Default().
	Logger *slog.Logger
}

// Stats describes what Load read.
type Stats struct {
	Bytes           int
	Compressed      bool
	Encoding        Encoding
	DroppedRecords  int
	DroppedImports  int
	RecordsReturned int

	// UnknownEsmImports counts kept imports whose isEsm was absent or null.
	UnknownEsmImports int
}

// Load reads, decodes and checks the dataset at path.
func Load(ctx context.Context, path string, opts Options) (importmodel.Dataset, Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read dataset %s: %w", path, err)
	}

	return Decode(ctx, raw, path, opts)
}

// Decode decodes raw dataset bytes. name selects the encoding by extension and
// is used in error messages.
func Decode(ctx context.Context, raw []byte, name string, opts Options) (importmodel.Dataset, Stats, error) {
	stats := Stats{Bytes: len(raw)}

	if isLZ4(raw, name) {
		plain, err := decompress(raw)
		if err != nil {
			return nil, stats, fmt.Errorf("%w %s: %w", ErrDecode, name, err)
		}

		raw = plain
		stats.Compressed = true
	}

	stats.Encoding = encodingFor(name)

	err := ctx.Err()
	if err != nil {
		return nil, stats, fmt.Errorf("load dataset: %w", err)
	}

	if opts.ValidateSchema {
		err = validateSchema(raw, stats.Encoding)
		if err != nil {
			return nil, stats, fmt.Errorf("%s: %w", name, err)
		}
	}

	var ds importmodel.Dataset

	switch stats.Encoding {
	case EncodingYAML:
		err = yaml.Unmarshal(raw, &ds)
	case EncodingJSON:
		err = json.Unmarshal(raw, &ds)
	}

	if err != nil {
		return nil, stats, fmt.Errorf("%w %s: %w", ErrDecode, name, err)
	}

	if ds == nil {
		ds = importmodel.Dataset{}
	}

	err = checkRecords(ctx, ds, opts, &stats)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", name, err)
	}

	stats.RecordsReturned = len(ds)

	return ds, stats, nil
}

// checkRecords enforces the presence of importSources and type. Records are
// visited in sorted order so the reported record is stable.
func checkRecords(ctx context.Context, ds importmodel.Dataset, opts Options, stats *Stats) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fileIDs := make([]string, 0, len(ds))
	for fileID := range ds {
		fileIDs = append(fileIDs, fileID)
	}

	slices.Sort(fileIDs)

	for _, fileID := range fileIDs {
		record := ds[fileID]

		if record.ImportSources == nil {
			if !opts.Lenient {
				return fmt.Errorf("%w: %q", ErrMissingImportSources, fileID)
			}

			logger.WarnContext(ctx, "dropping file record without importSources", "file", fileID)
			delete(ds, fileID)

			stats.DroppedRecords++

			continue
		}

		specifiers := make([]string, 0, len(record.ImportSources))
		for specifier := range record.ImportSources {
			specifiers = append(specifiers, specifier)
		}

		slices.Sort(specifiers)

		for _, specifier := range specifiers {
			info := record.ImportSources[specifier]
			if info.Type != "" {
				if !info.IsEsm.Known() {
					stats.UnknownEsmImports++
				}

				continue
			}

			if !opts.Lenient {
				return fmt.Errorf("%w: %q in %q", ErrMissingType, specifier, fileID)
			}

			logger.WarnContext(ctx, "dropping import without type", "file", fileID, "specifier", specifier)
			delete(record.ImportSources, specifier)

			stats.DroppedImports++
		}
	}

	return nil
}

func isLZ4(raw []byte, name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".lz4") || bytes.HasPrefix(raw, lz4FrameMagic)
}

func decompress(raw []byte) ([]byte, error) {
	plain, err := io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}

	return plain, nil
}

// encodingFor picks the encoding from the extension, looking through a
// trailing .lz4 (results.yaml.lz4 is YAML).
func encodingFor(name string) Encoding {
	base := strings.ToLower(filepath.Base(name))
	base = strings.TrimSuffix(base, ".lz4")

	switch filepath.Ext(base) {
	case ".yaml", ".yml":
		return EncodingYAML
	default:
		return EncodingJSON
	}
}
