package perl

import (
	"path"
	"strings"
)

// FileKind is the closed set of build-description formats. Every discovered
// file is classified exactly once and dispatch branches on the kind.
type FileKind int

const (
	KindUnrecognized FileKind = iota
	KindCpanfile
	KindMakefilePL
	KindBuildPL
	KindMetaJSON
	KindMetaYAML
)

var kindNames = [...]string{
	KindUnrecognized: "unrecognized",
	KindCpanfile:     "cpanfile",
	KindMakefilePL:   "makefile-pl",
	KindBuildPL:      "build-pl",
	KindMetaJSON:     "meta-json",
	KindMetaYAML:     "meta-yaml",
}

// String returns the kind name used in records and logs.
func (k FileKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnrecognized]
	}
	return kindNames[k]
}

// IsManifest reports whether k is a structured manifest that can be parsed
// without running anything.
func (k FileKind) IsManifest() bool {
	return k == KindMetaJSON || k == KindMetaYAML
}

// IsScript reports whether k is a build script run through perl.
func (k FileKind) IsScript() bool {
	return k == KindMakefilePL || k == KindBuildPL
}

// order is the processing rank inside one directory: the lister and the
// build scripts go first because they may rewrite the MYMETA files that the
// standalone manifests read afterwards.
func (k FileKind) order() int {
	switch k {
	case KindCpanfile:
		return 0
	case KindMakefilePL:
		return 1
	case KindBuildPL:
		return 2
	case KindMetaJSON, KindMetaYAML:
		return 3
	default:
		return 4
	}
}

var basenames = map[string]FileKind{
	"cpanfile":    KindCpanfile,
	"makefile.pl": KindMakefilePL,
	"build.pl":    KindBuildPL,
	"meta.json":   KindMetaJSON,
	"mymeta.json": KindMetaJSON,
	"meta.yml":    KindMetaYAML,
	"mymeta.yml":  KindMetaYAML,
}

// Classify returns the kind of a file by its basename, case-insensitively.
// Directory components of filename are ignored.
func Classify(filename string) FileKind {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return basenames[strings.ToLower(base)]
}

// ParseKind is the inverse of [FileKind.String].
func ParseKind(name string) (FileKind, bool) {
	for k, n := range kindNames {
		if n == name && FileKind(k) != KindUnrecognized {
			return FileKind(k), true
		}
	}
	return KindUnrecognized, false
}
