// Package models tracks the catalog of NER models nerplay can use and
// installs downloadable ONNX bundles.
package models

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

//go:embed registry.json
var embeddedRegistry []byte

type Registry struct {
	Version string      `json:"version"`
	Models  []ModelSpec `json:"models"`
}

// ModelSpec describes one model. Builtin models ship inside the binary
// and have no URL; the rest are tar.gz bundles holding model.onnx,
// labels.json, and a WordPiece vocabulary.
type ModelSpec struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Version      string   `json:"version"`
	Language     string   `json:"language"`
	URL          string   `json:"url,omitempty"`
	Checksum     string   `json:"checksum,omitempty"`
	SizeBytes    int64    `json:"size_bytes,omitempty"`
	Labels       []string `json:"labels"`
	Description  string   `json:"description"`
	Architecture string   `json:"architecture"`
	License      string   `json:"license"`
	Builtin      bool     `json:"builtin,omitempty"`
	Recommended  bool     `json:"recommended,omitempty"`
}

func LoadEmbeddedRegistry() (Registry, error) {
	return parseRegistry(embeddedRegistry)
}

func parseRegistry(data []byte) (Registry, error) {
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse model registry: %w", err)
	}
	sort.Slice(reg.Models, func(i, j int) bool { return reg.Models[i].Name < reg.Models[j].Name })
	return reg, nil
}

func (r Registry) Find(name string) (ModelSpec, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// placeholderChecksum fills registry entries whose release artifacts
// have not been uploaded yet.
const placeholderChecksum = "sha256:REPLACE_WITH_RELEASE_CHECKSUM"

// Published reports whether a bundle has a downloadable release. A
// registry entry may precede its artifact; until the release is cut it
// carries a placeholder checksum and cannot be installed.
func (m ModelSpec) Published() bool {
	return m.URL != "" && m.Checksum != "" && m.Checksum != placeholderChecksum
}

// InstallPath returns the directory a bundle is installed to.
func InstallPath(root string, name string) string {
	return filepath.Join(root, name)
}

// IsInstalled reports whether a model is usable from root. Builtin
// models are always installed.
func IsInstalled(root string, model ModelSpec) bool {
	if model.Builtin {
		return true
	}
	return bundleComplete(InstallPath(root, model.Name))
}

// Remove deletes an installed bundle. Builtin models cannot be removed.
func Remove(root string, model ModelSpec) error {
	if model.Builtin {
		return fmt.Errorf("model %s is built in and cannot be removed", model.Name)
	}
	dir := InstallPath(root, model.Name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("model %s is not installed", model.Name)
	}
	return os.RemoveAll(dir)
}

// bundleComplete checks the files an ONNX bundle must carry. The
// vocabulary may live at the bundle root or under tokenizer/.
func bundleComplete(dir string) bool {
	for _, f := range []string{"model.onnx", "labels.json"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	for _, v := range []string{filepath.Join("tokenizer", "vocab.txt"), "vocab.txt"} {
		if _, err := os.Stat(filepath.Join(dir, v)); err == nil {
			return true
		}
	}
	return false
}
