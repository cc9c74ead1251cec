package boxes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	box, err := FromString(LTRBAbs, "1 2.5  3e1\t40")
	require.NoError(t, err)
	assert.Equal(t, LTRBAbs, box.Kind)
	assert.Equal(t, [4]float64{1, 2.5, 30, 40}, box.Coords)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too few", "1 2 3"},
		{"too many", "1 2 3 4 5"},
		{"not a number", "1 2 x 4"},
		{"nan", "NaN 0.5 0.5 0.5"},
		{"infinity", "0 +Inf 1 1"},
		{"negative infinity", "0 0 -inf 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromString(LTWHAbs, tt.input)
			require.Error(t, err)

			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestParseAnnotatedBox(t *testing.T) {
	ann, err := ParseAnnotatedBox("7 0.5 0.25 0.1 0.2\n", LTWHRel)
	require.NoError(t, err)
	assert.Equal(t, 7, ann.Class)
	assert.Equal(t, LTWHRel, ann.Box.Kind)
	assert.Equal(t, [4]float64{0.5, 0.25, 0.1, 0.2}, ann.Box.Coords)

	bad := []string{
		"7 0.5 0.25 0.1",
		"7 0.5 0.25 0.1 0.2 0.3",
		"seven 0.5 0.25 0.1 0.2",
		"1.5 0.5 0.25 0.1 0.2",
		"",
	}
	for _, line := range bad {
		_, err := ParseAnnotatedBox(line, LTWHRel)
		require.Error(t, err, line)

		var perr *ParseError
		assert.True(t, errors.As(err, &perr), line)
	}
}

func TestAnnotatedBoxString(t *testing.T) {
	ann := AnnotatedBox{Class: 3, Box: FromCoordinates(LTRBAbs, [4]float64{10, 5.5, 30, 20})}
	assert.Equal(t, "3 10 5.5 30 20", ann.String())

	parsed, err := ParseAnnotatedBox(ann.String(), LTRBAbs)
	require.NoError(t, err)
	assert.Equal(t, ann, parsed)
}
