package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequiresImage(t *testing.T) {
	c := Defaults()
	assert.Error(t, c.Validate(), "expected error for missing image")
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	c := Defaults()
	c.Image = "alpine"
	c.Timeout = 0
	assert.Error(t, c.Validate(), "expected error for zero timeout")
}

func TestValidateRejectsRelativeOldRootMount(t *testing.T) {
	c := Defaults()
	c.Image = "alpine"
	c.OldRootMount = "mnt/oldroot"
	assert.Error(t, c.Validate(), "expected error for relative old root mount")
}

func TestValidateAcceptsDefaults(t *testing.T) {
	c := Defaults()
	c.Image = "alpine"
	assert.NoError(t, c.Validate())
}

func TestRelativeOldRootMountStripsLeadingSlash(t *testing.T) {
	c := Defaults()
	assert.Equal(t, "mnt/oldroot", c.RelativeOldRootMount())
}
