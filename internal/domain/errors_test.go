package domain

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, SkipAndWarn, p)

	p, err = ParsePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)
	assert.Equal(t, "fail", p.String())

	_, err = ParsePolicy("abort")
	assert.Error(t, err)
}

func TestParseAxisOrder(t *testing.T) {
	a, err := ParseAxisOrder(" LatLon ")
	require.NoError(t, err)
	assert.Equal(t, LatLon, a)
	assert.Equal(t, "latlon", a.String())

	a, err = ParseAxisOrder("")
	require.NoError(t, err)
	assert.Equal(t, LonLat, a)

	_, err = ParseAxisOrder("xy")
	assert.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	gerr := &GeometryError{RegionID: "Bow", Err: ErrUnclosedRing}
	assert.Equal(t, `geometry error in region "Bow": ring is not closed`, gerr.Error())
	assert.ErrorIs(t, gerr, ErrUnclosedRing)

	derr := &DataError{Row: 7, Field: "region", Err: ErrMissingRegion}
	assert.Equal(t, "data error at row 7 (region): region identifier is missing", derr.Error())

	ioerr := &IOError{Op: "read", Path: "clients.csv", Err: fs.ErrNotExist}
	assert.Equal(t, "read clients.csv: file does not exist", ioerr.Error())
	assert.True(t, errors.Is(ioerr, fs.ErrNotExist))
}
