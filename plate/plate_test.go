package plate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-alpr/boxes"
)

func symbolAt(id int, left, top float64) Symbol {
	return Symbol{ID: id, Rect: boxes.FromCoordinates(boxes.LTRBAbs, [4]float64{left, top, left + 8, top + 16})}
}

func TestSymbolIDLatinAndCyrillic(t *testing.T) {
	latinA, err := SymbolID('A')
	require.NoError(t, err)
	cyrillicA, err := SymbolID('А')
	require.NoError(t, err)

	assert.Equal(t, 10, latinA)
	assert.Equal(t, latinA, cyrillicA)

	// Every position resolves the same way in both scripts.
	for i, r := range []rune(Latin) {
		id, err := SymbolID(r)
		require.NoError(t, err)
		assert.Equal(t, i, id, string(r))

		id, err = SymbolID([]rune(Cyrillic)[i])
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}
}

func TestSymbolIDCaseInsensitive(t *testing.T) {
	lower, err := SymbolID('x')
	require.NoError(t, err)
	assert.Equal(t, 21, lower)

	cyr, err := SymbolID('в')
	require.NoError(t, err)
	assert.Equal(t, 11, cyr)
}

func TestSymbolIDUnknown(t *testing.T) {
	for _, c := range []rune{'Z', 'Ж', '-', ' '} {
		_, err := SymbolID(c)
		require.Error(t, err)

		var unknown *UnknownCharacterError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, c, unknown.Char)
	}
}

func TestSymbolIDs(t *testing.T) {
	ids, err := SymbolIDs("А 123 ВС")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 1, 2, 3, 11, 18}, ids)

	_, err = SymbolIDs("A1Z")
	assert.Error(t, err)
}

func TestSequenceOrdersByLeft(t *testing.T) {
	in := []Symbol{symbolAt(2, 50, 0), symbolAt(0, 10, 0), symbolAt(1, 30, 0)}

	out := Sequence(in)
	p := Plate{Symbols: out}
	assert.Equal(t, []int{0, 1, 2}, p.IDs())
	assert.Equal(t, "012", p.String())

	// Input untouched.
	assert.Equal(t, 2, in[0].ID)
}

func TestSequenceTieBreaks(t *testing.T) {
	in := []Symbol{
		symbolAt(5, 10, 20),
		symbolAt(4, 10, 5),
		symbolAt(7, 0, 0),
		symbolAt(8, 10, 5),
	}

	out := Sequence(in)
	// Equal left sorts by top, full ties keep input order.
	assert.Equal(t, []int{7, 4, 8, 5}, Plate{Symbols: out}.IDs())
}

func TestSequenceEmpty(t *testing.T) {
	assert.Empty(t, Sequence(nil))
}

func TestSymbolString(t *testing.T) {
	assert.Equal(t, "X", Symbol{ID: 21}.String())
	assert.Equal(t, "?", Symbol{ID: 22}.String())
	assert.Equal(t, "?", Symbol{ID: -1}.String())
}

func TestGroundTruth(t *testing.T) {
	ids, ok, err := GroundTruth("car_17 [А 123 ВС]")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{10, 1, 2, 3, 11, 18}, ids)

	_, ok, err = GroundTruth("car_17")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = GroundTruth("car [A1!]")
	assert.True(t, ok)
	assert.Error(t, err)
}
