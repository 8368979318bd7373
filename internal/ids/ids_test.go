package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJobID(t *testing.T) {
	a := NewJobID()
	b := NewJobID()

	assert.True(t, strings.HasPrefix(a, "job_"))
	assert.NotEqual(t, a, b)
	assert.True(t, ValidJobID(a))
}

func TestValidJobID(t *testing.T) {
	assert.False(t, ValidJobID(""))
	assert.False(t, ValidJobID("job_"))
	assert.False(t, ValidJobID("job_not-a-ksuid"))
	assert.False(t, ValidJobID("2H4qZ3vJzKjE8mN0pQrStUvWxYz"))
}
