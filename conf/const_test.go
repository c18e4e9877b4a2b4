package conf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullVersion(t *testing.T) {
	t.Parallel()
	version := FullVersion()
	assert.Equal(t, fmt.Sprintf("%v (bundle format %v)", BUNDLEVERSION, BUNDLEFORMAT), version)
}

func TestCloneLimitSentinel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, -1, UNLIMITEDCLONES)
	assert.Less(t, UNLIMITEDCLONES, 0)
}
