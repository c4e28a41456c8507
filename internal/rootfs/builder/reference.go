package builder

import (
	"fmt"
	"strings"

	distref "github.com/distribution/reference"
)

// defaultRegistry is the well-known Docker Hub endpoint
const defaultRegistry = "registry-1.docker.io"

// defaultTag is used when no tag or digest is given
const defaultTag = "latest"

// ImageReference is the parsed form of a user-supplied image string.
// It is immutable once constructed.
type ImageReference struct {
	Registry   string
	Repository string
	Tag        string // empty if Digest is set
	Digest     string // "algo:hash", empty if Tag is set

	// explicitRegistry records whether the input string itself named a
	// registry domain, as opposed to Registry holding the synthesized
	// default. String() needs this to round-trip a fully-qualified
	// Docker Hub reference back to its original, explicit form.
	explicitRegistry bool
}

// ParseImageReference parses a user-supplied image string. It uses
// distribution/reference (the same repository/tag/digest grammar Docker
// itself uses) to validate the input, then applies xenomorph's own
// registry-default and single-segment-name rules on top, since
// distribution/reference's own default registry ("docker.io") differs
// from the well-known endpoint name xenomorph canonicalizes to.
func ParseImageReference(s string) (*ImageReference, error) {
	named, err := distref.ParseNormalizedNamed(s)
	if err != nil {
		return nil, fmt.Errorf("parse image reference %q: %w", s, err)
	}

	domain := distref.Domain(named)
	path := distref.Path(named)

	ref := &ImageReference{
		Registry:         canonicalRegistry(domain),
		Repository:       path,
		explicitRegistry: domain != "docker.io",
	}

	if canonical, ok := named.(distref.Canonical); ok {
		ref.Digest = canonical.Digest().String()
		return ref, nil
	}

	tagged := distref.TagNameOnly(named)
	if t, ok := tagged.(distref.Tagged); ok {
		ref.Tag = t.Tag()
	} else {
		ref.Tag = defaultTag
	}

	return ref, nil
}

// canonicalRegistry maps distribution/reference's default domain
// ("docker.io") onto the well-known Docker Hub API endpoint, in its
// canonical form.
func canonicalRegistry(domain string) string {
	if domain == "docker.io" || domain == "" {
		return defaultRegistry
	}
	return domain
}

// String re-formats the reference, round-tripping inputs that already
// carried an explicit registry/repository/tag.
func (r *ImageReference) String() string {
	repo := r.Repository
	if r.Registry != defaultRegistry || r.explicitRegistry {
		repo = r.Registry + "/" + r.Repository
	} else if !strings.Contains(repo, "/") {
		// shouldn't happen: library/ is always synthesized by the parser
		repo = "library/" + repo
	}

	if r.Digest != "" {
		return repo + "@" + r.Digest
	}

	tag := r.Tag
	if tag == "" {
		tag = defaultTag
	}
	return repo + ":" + tag
}

// IsDigest reports whether this reference pins an exact digest.
func (r *ImageReference) IsDigest() bool {
	return r.Digest != ""
}
