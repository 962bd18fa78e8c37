package apperror

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

// go test -v --run TestCodeOf
func TestCodeOf(t *testing.T) {
	base := Wrap(Provider, "yahoo.latest", errors.New("timeout"))
	wrapped := fmt.Errorf("fetch prices: %w", base)

	assert.Equal(t, Provider, CodeOf(base))
	assert.Equal(t, Provider, CodeOf(wrapped))
	assert.Equal(t, Unknown, CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

// go test -v --run TestWrapKeepsCause
func TestWrapKeepsCause(t *testing.T) {
	err := Wrapf(Persistence, "store.persist", fs.ErrPermission, "rename %s", "prices.csv")

	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, "store.persist: rename prices.csv: permission denied", err.Error())
	assert.Nil(t, Wrap(StoreCorrupt, "store.load", nil))
}

// go test -v --run TestExitCode
func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, Code("").ExitCode())
	assert.Equal(t, 2, Configuration.ExitCode())
	assert.Equal(t, 3, Provider.ExitCode())
	assert.Equal(t, 4, StoreCorrupt.ExitCode())
	assert.Equal(t, 5, Persistence.ExitCode())
	assert.Equal(t, 1, Unknown.ExitCode())
}
