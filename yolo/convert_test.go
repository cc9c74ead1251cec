package yolo

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/coco"
)

const latin = "0123456789ABEKMHOPCTYX"

type fixture struct {
	t      *testing.T
	labels string
	images string
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	f := &fixture{t: t, labels: filepath.Join(dir, "labels"), images: filepath.Join(dir, "images")}
	require.NoError(t, os.Mkdir(f.labels, 0o755))
	require.NoError(t, os.Mkdir(f.images, 0o755))
	return f
}

func (f *fixture) label(name string, lines ...string) {
	f.t.Helper()
	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	require.NoError(f.t, os.WriteFile(filepath.Join(f.labels, name), []byte(data), 0o644))
}

func (f *fixture) image(name string, w, h int) {
	f.t.Helper()
	require.NoError(f.t, imaging.Save(imaging.New(w, h, color.White), filepath.Join(f.images, name)))
}

func (f *fixture) raw(name, content string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.images, name), []byte(content), 0o644))
}

func (f *fixture) options() Options {
	return Options{
		LabelDir: f.labels,
		ImageDir: f.images,
		Source:   FormatCenter,
		Target:   boxes.LTWHAbs,
		Alphabet: latin,
	}
}

func TestConvert(t *testing.T) {
	f := newFixture(t)
	f.image("b.png", 200, 100)
	f.label("b.txt", "10 0.5 0.5 0.2 0.4", "3 0.25 0.25 0.1 0.1")
	f.image("a.jpg", 64, 32)
	f.label("a.txt", "1 0.5 0.5 1 1")

	d, err := Convert(f.options())
	require.NoError(t, err)

	assert.Equal(t, coco.DefaultInfo(), d.Info)
	assert.Equal(t, []coco.Image{
		{ID: 0, FileName: "a.jpg", Width: 64, Height: 32},
		{ID: 1, FileName: "b.png", Width: 200, Height: 100},
	}, d.Images)

	require.Len(t, d.Annotations, 3)
	assert.Equal(t, 0, d.Annotations[0].ID)
	assert.Equal(t, 100, d.Annotations[1].ID)
	assert.Equal(t, 101, d.Annotations[2].ID)
	assert.Equal(t, 1, d.Annotations[2].ImageID)
	assert.Equal(t, 3, d.Annotations[2].CategoryID)

	// Center 0.5,0.5 size 0.2x0.4 in 200x100 is left 80, top 30, 40x40.
	second := d.Annotations[1]
	for i, want := range []float64{80, 30, 40, 40} {
		assert.InDelta(t, want, second.BBox[i], 1e-9)
	}
	assert.InDelta(t, 1600, second.Area, 1e-9)

	assert.Equal(t, []coco.Category{
		{ID: 1, Name: "1"},
		{ID: 3, Name: "3"},
		{ID: 10, Name: "A"},
	}, d.Categories)

	require.NoError(t, d.Validate())
}

func TestConvertTargetKinds(t *testing.T) {
	f := newFixture(t)
	f.image("a.png", 100, 50)
	f.label("a.txt", "0 10 5 30 25")

	opts := f.options()
	opts.Source = FormatOf(boxes.LTRBAbs)

	for _, target := range boxes.Kinds {
		opts.Target = target
		d, err := Convert(opts)
		require.NoError(t, err)
		require.Len(t, d.Annotations, 1)

		box := d.Annotations[0].BBox.Box(target)
		back, err := box.To(boxes.LTRBAbs, 100, 50)
		require.NoError(t, err)
		for i, want := range []float64{10, 5, 30, 25} {
			assert.InDelta(t, want, back.Coords[i], 1e-9, target.String())
		}
		assert.InDelta(t, box.Area(), d.Annotations[0].Area, 1e-12)
	}
}

func TestConvertSkipsBadInputs(t *testing.T) {
	f := newFixture(t)
	f.image("ok.png", 10, 10)
	f.label("ok.txt", "0 0.5 0.5 0.5 0.5")

	// Malformed label file.
	f.image("badlabel.png", 10, 10)
	f.label("badlabel.txt", "0 0.5 0.5 0.5 0.5", "garbage")

	// Corrupt image.
	f.raw("corrupt.png", "not an image")
	f.label("corrupt.txt", "0 0.5 0.5 0.5 0.5")

	// Coordinates that parse as floats but are not finite.
	f.image("nan.png", 10, 10)
	f.label("nan.txt", "0 NaN 0.5 0.5 0.5")

	// GIF header with a 0x0 logical screen.
	f.raw("empty.gif", "GIF89a\x00\x00\x00\x00\x00\x00\x00")
	f.label("empty.txt", "0 0.5 0.5 0.5 0.5")

	// Unmatched on either side, and an extension outside the allow-list.
	f.label("nolabelimage.txt", "0 0.5 0.5 0.5 0.5")
	f.image("noimagelabel.png", 10, 10)
	f.image("other.bmp", 10, 10)
	f.label("other.txt", "0 0.5 0.5 0.5 0.5")

	core, logs := observer.New(zap.WarnLevel)
	opts := f.options()
	opts.Logger = zap.New(core)

	d, err := Convert(opts)
	require.NoError(t, err)
	require.Len(t, d.Images, 1)
	assert.Equal(t, "ok.png", d.Images[0].FileName)
	assert.Len(t, d.Annotations, 1)

	assert.Equal(t, 2, logs.FilterMessage("failed to load bboxes").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to decode image size").Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping image with empty size").Len())

	// Whatever was kept must still serialize.
	require.NoError(t, d.Save(filepath.Join(t.TempDir(), "dataset.json"), 0))
}

func TestConvertCeiling(t *testing.T) {
	f := newFixture(t)
	f.image("a.png", 10, 10)
	f.label("a.txt", "0 0.5 0.5 0.5 0.5")

	lines := make([]string, BBoxCeiling+1)
	for i := range lines {
		lines[i] = fmt.Sprintf("%d 0.5 0.5 0.1 0.1", i%10)
	}
	f.image("z.png", 10, 10)
	f.label("z.txt", lines...)

	d, err := Convert(f.options())
	require.Error(t, err)
	assert.Nil(t, d)

	var ceiling *BBoxCeilingExceededError
	require.True(t, errors.As(err, &ceiling))
	assert.Equal(t, "z.png", ceiling.Image)
	assert.Equal(t, 101, ceiling.Count)
	assert.Equal(t, 100, ceiling.Ceiling)

	// Exactly at the ceiling is fine.
	f.label("z.txt", lines[:BBoxCeiling]...)
	d, err = Convert(f.options())
	require.NoError(t, err)
	assert.Len(t, d.Annotations, 1+BBoxCeiling)
	assert.Equal(t, 199, d.Annotations[len(d.Annotations)-1].ID)
}

func TestConvertEmptyPolicy(t *testing.T) {
	f := newFixture(t)
	f.image("a.png", 10, 10)
	f.label("a.txt")
	f.image("b.png", 10, 10)
	f.label("b.txt", "5 0.5 0.5 0.5 0.5")

	d, err := Convert(f.options())
	require.NoError(t, err)
	require.Len(t, d.Images, 1)
	assert.Equal(t, coco.Image{ID: 0, FileName: "b.png", Width: 10, Height: 10}, d.Images[0])
	assert.Equal(t, 0, d.Annotations[0].ImageID)

	opts := f.options()
	opts.Empty = EmptyFail
	_, err = Convert(opts)
	var empty *EmptyItemError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "a.png", empty.Image)
}

func TestConvertSameDirectoryAndInfo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(8, 8, color.Black), filepath.Join(dir, "x.gif")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("0 0.5 0.5 0.5 0.5\n"), 0o644))

	info := coco.Info{Year: 2025, Version: "2", Description: "plates"}
	d, err := Convert(Options{LabelDir: dir, ImageDir: dir, Source: FormatCenter, Target: boxes.LTRBRel, Info: info})
	require.NoError(t, err)
	assert.Equal(t, info, d.Info)
	require.Len(t, d.Images, 1)
	assert.Equal(t, []coco.Category{{ID: 0, Name: "0"}}, d.Categories)
}

func TestConvertEmptyInput(t *testing.T) {
	f := newFixture(t)

	d, err := Convert(f.options())
	require.NoError(t, err)
	assert.Empty(t, d.Images)
	assert.Empty(t, d.Annotations)
	assert.Empty(t, d.Categories)

	_, err = Convert(Options{LabelDir: filepath.Join(t.TempDir(), "nope"), ImageDir: f.images})
	assert.Error(t, err)
}
