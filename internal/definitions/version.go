// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the constraint every document's version must satisfy.
const SupportedVersions = "^1"

var supported = semver.MustParse("1.0.0")

// CheckVersion verifies the version field of a document. A document without
// a version is treated as 1.0.0.
func CheckVersion(document string, data []byte) error {
	var head struct {
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return oops.In("definitions").
			Code(CodeDocumentInvalid).
			With("document", document).
			Wrapf(err, "invalid YAML")
	}
	if head.Version == "" {
		return nil
	}

	v, err := semver.NewVersion(head.Version)
	if err != nil {
		return oops.In("definitions").
			Code(CodeVersionUnsupported).
			With("document", document).
			With("version", head.Version).
			Wrapf(err, "invalid document version %q", head.Version)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return oops.In("definitions").Wrap(err)
	}
	if !c.Check(v) {
		return oops.In("definitions").
			Code(CodeVersionUnsupported).
			With("document", document).
			With("version", head.Version).
			Errorf("%s version %s is not compatible with %s (supported %s)", document, v, SupportedVersions, supported)
	}
	return nil
}
