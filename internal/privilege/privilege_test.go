package privilege

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckFailsForNonRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, cannot exercise the non-root path")
	}
	assert.Error(t, Check(), "expected an error for a non-root caller")
}
