package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version, Commit = "v1.2.3", "abc1234"
	s := String()
	assert.Contains(t, s, "clipflow v1.2.3")
	assert.Contains(t, s, "commit abc1234")
	assert.Contains(t, s, GoVersion)
}
