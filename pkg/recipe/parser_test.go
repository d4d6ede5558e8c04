package recipe_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"boulder/pkg/recipe"
)

const sampleYAML = `
version: "1.2.3"
options:
  networking: false
architectures:
  - x86_64
crossTargets:
  - from: x86_64
    to: aarch64
upstreams:
  - uri: https://example.org/src.tar.gz
    hash: abcdef0123456789
build: |
  make
install: |
  make install
profiles:
  x86_64->aarch64:
    build: |
      make CROSS=1
`

func TestParseAndBuildTargets(t *testing.T) {
	r, err := recipe.Parse(sampleYAML)
	assert.NilError(t, err)
	assert.Equal(t, r.Version.String(), "1.2.3")
	assert.Equal(t, r.Options.Networking, false)
	assert.Equal(t, len(r.Upstreams), 1)
	assert.Equal(t, r.Upstreams[0].URI.Hash, "abcdef0123456789")

	targets := r.BuildTargets()
	assert.Equal(t, len(targets), 1)
	assert.Equal(t, targets[0].String(), string(recipe.HostArchitecture()))
}

func TestBuildTargetProfileKey(t *testing.T) {
	r, err := recipe.Parse(sampleYAML)
	assert.NilError(t, err)

	native := recipe.NewNative(recipe.HostArchitecture())
	assert.Assert(t, r.BuildTargetProfileKey(native) == nil)

	cross := recipe.NewCross("x86_64", "aarch64")
	key := r.BuildTargetProfileKey(cross)
	assert.Assert(t, key != nil)
	assert.Equal(t, *key, "x86_64->aarch64")
	assert.Equal(t, r.StepScript(cross, recipe.Build), "make CROSS=1\n")
}

func TestNoBuildTargets(t *testing.T) {
	r, err := recipe.Parse("architectures: []\n")
	assert.NilError(t, err)
	assert.Equal(t, len(r.BuildTargets()), 0)
}
