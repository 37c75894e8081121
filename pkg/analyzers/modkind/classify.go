// Package modkind counts how many imports in a precomputed dataset resolve to
// ECMAScript modules versus CommonJS modules.
package modkind

import (
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/importmodel"
)

// Bucket names the counter an import was assigned to.
type Bucket uint8

// Buckets, in report order. BucketNone means the import was excluded.
const (
	BucketNone Bucket = iota
	BucketESMEntryPoint
	BucketCJSEntryPoint
	BucketESMDeepImport
	BucketCJSDeepImport
	BucketESMFile
	BucketCJSFile
)

// Buckets lists every counting bucket in report order.
var Buckets = []Bucket{
	BucketESMEntryPoint,
	BucketCJSEntryPoint,
	BucketESMDeepImport,
	BucketCJSDeepImport,
	BucketESMFile,
	BucketCJSFile,
}

var bucketNames = map[Bucket]string{
	BucketNone:          "none",
	BucketESMEntryPoint: "esm_package_entry_point",
	BucketCJSEntryPoint: "cjs_package_entry_point",
	BucketESMDeepImport: "esm_package_deep_import",
	BucketCJSDeepImport: "cjs_package_deep_import",
	BucketESMFile:       "esm_file",
	BucketCJSFile:       "cjs_file",
}

func (b Bucket) String() string {
	if name, ok := bucketNames[b]; ok {
		return name
	}

	return "invalid"
}

// Exclusion explains why an import was not counted.
type Exclusion uint8

// Exclusion reasons.
const (
	NotExcluded Exclusion = iota
	ExcludedUnresolved
	ExcludedUnrecognizedType
	ExcludedIndeterminate
)

func (e Exclusion) String() string {
	switch e {
	case NotExcluded:
		return "counted"
	case ExcludedUnresolved:
		return "unresolved"
	case ExcludedUnrecognizedType:
		return "unrecognized type"
	case ExcludedIndeterminate:
		return "indeterminate module kind"
	default:
		return "invalid"
	}
}

// Outcome is the result of classifying one import. Exactly one of Bucket and
// Excluded is set.
type Outcome struct {
	Bucket   Bucket
	Excluded Exclusion
}

// Counted reports whether the import contributes to a counter.
func (o Outcome) Counted() bool {
	return o.Bucket != BucketNone
}

// Policy tunes classification for older datasets.
type Policy struct {
	// LegacyPackageAlias classifies the legacy "package" type like "package entry point".
	LegacyPackageAlias bool
}

// Classify assigns one import to a bucket or an exclusion reason.
//
// Package entry points always land in the ESM or CJS bucket. Deep imports and
// files need either isEsm true, or isEsm false corroborated by isCjs; anything
// else is indeterminate and excluded.
func Classify(info importmodel.ImportInfo, policy Policy) Outcome {
	if info.Unresolved {
		return excluded(ExcludedUnresolved)
	}

	switch info.Type {
	case importmodel.TypePackageEntryPoint:
		return classifyEntryPoint(info)
	case importmodel.TypePackageDeepImport:
		return classifyCorroborated(info, BucketESMDeepImport, BucketCJSDeepImport)
	case importmodel.TypeFile:
		return classifyCorroborated(info, BucketESMFile, BucketCJSFile)
	case importmodel.TypeLegacyPackage:
		if policy.LegacyPackageAlias {
			return classifyEntryPoint(info)
		}

		return excluded(ExcludedUnrecognizedType)
	default:
		return excluded(ExcludedUnrecognizedType)
	}
}

func classifyEntryPoint(info importmodel.ImportInfo) Outcome {
	if info.IsEsm == importmodel.EsmTrue {
		return Outcome{Bucket: BucketESMEntryPoint}
	}

	return Outcome{Bucket: BucketCJSEntryPoint}
}

func classifyCorroborated(info importmodel.ImportInfo, esm, cjs Bucket) Outcome {
	switch {
	case info.IsEsm == importmodel.EsmTrue:
		return Outcome{Bucket: esm}
	case info.IsEsm == importmodel.EsmFalse && info.IsCjs:
		return Outcome{Bucket: cjs}
	default:
		return excluded(ExcludedIndeterminate)
	}
}

func excluded(reason Exclusion) Outcome {
	return Outcome{Bucket: BucketNone, Excluded: reason}
}
