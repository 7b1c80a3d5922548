package errs

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	testCases := []struct {
		err      error
		sentinel error
		contains string
	}{
		{InvalidArgument("points %d < %d", 2, 4), ErrInvalidArgument, "points 2 < 4"},
		{NotSupported("nugget %g", 0.2), ErrNotSupported, "nugget 0.2"},
		{NotConverged("after %d iterations", 32), ErrNotConverged, "after 32 iterations"},
		{IO(os.ErrNotExist, "reading %s", "a.csv"), ErrIO, "reading a.csv"},
	}

	for _, tc := range testCases {
		assert.True(t, errors.Is(tc.err, tc.sentinel), tc.err.Error())
		assert.Contains(t, tc.err.Error(), tc.contains)
	}

	assert.False(t, errors.Is(InvalidArgument("x"), ErrNotSupported))
}
