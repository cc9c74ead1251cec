package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/coco"
	"github.com/nvr-ai/go-alpr/logger"
	"github.com/nvr-ai/go-alpr/plate"
	"github.com/nvr-ai/go-alpr/yolo"
)

// split writes train.json and eval.json next to the input dataset.
func (a *app) split(_ context.Context, args []string) error {
	fs := a.flagSet("split")
	ratio := fs.Float64("ratio", 0.8, "share of images in the train subset")
	indent := fs.Int("indent", 0, "JSON indentation, 0 for compact output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 1); err != nil {
		return err
	}
	if _, err := setup(""); err != nil {
		return err
	}

	src := fs.Arg(0)
	dataset, err := coco.Load(src)
	if err != nil {
		return err
	}
	train, eval, err := dataset.Split(*ratio)
	if err != nil {
		return err
	}

	dir := filepath.Dir(src)
	if err := train.Save(filepath.Join(dir, "train.json"), *indent); err != nil {
		return err
	}
	if err := eval.Save(filepath.Join(dir, "eval.json"), *indent); err != nil {
		return err
	}
	logger.Log().Info("dataset split",
		zap.String("path", src),
		zap.Int("train", len(train.Images)),
		zap.Int("eval", len(eval.Images)))
	return nil
}

// yolo2coco converts a label directory into dir/dataset.json.
func (a *app) yolo2coco(_ context.Context, args []string) error {
	fs := a.flagSet("yolo2coco")
	indent := fs.Int("indent", 0, "JSON indentation, 0 for compact output")
	alphabet := fs.String("alphabet", plate.Latin, "category names by class id")
	strict := fs.Bool("strict", false, "fail on images without boxes instead of skipping them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 5); err != nil {
		return err
	}
	if _, err := setup(""); err != nil {
		return err
	}

	source, err := yolo.ParseFormat(fs.Arg(2))
	if err != nil {
		return err
	}
	target, err := boxes.ParseKind(fs.Arg(3))
	if err != nil {
		return err
	}
	policy := yolo.EmptySkip
	if *strict {
		policy = yolo.EmptyFail
	}

	dataset, err := yolo.Convert(yolo.Options{
		LabelDir: fs.Arg(0),
		ImageDir: fs.Arg(1),
		Source:   source,
		Target:   target,
		Alphabet: *alphabet,
		Empty:    policy,
		Logger:   logger.Log(),
	})
	if err != nil {
		return err
	}

	dir := fs.Arg(4)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	return dataset.Save(filepath.Join(dir, "dataset.json"), *indent)
}

// correct copies the label files whose classes spell the plate written in
// their name.
func (a *app) correct(_ context.Context, args []string) error {
	fs := a.flagSet("correct")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 2); err != nil {
		return err
	}
	if _, err := setup(""); err != nil {
		return err
	}
	log := logger.Log()

	src, dst := fs.Arg(0), fs.Arg(1)
	if filepath.Clean(src) == filepath.Clean(dst) {
		return errors.New("src and dst can not be the same directory")
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrap(err, "read label directory")
	}

	correct := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".txt") {
			continue
		}
		path := filepath.Join(src, name)

		want, ok, err := plate.GroundTruth(name)
		if !ok || err != nil {
			log.Warn("skipping label without ground truth", zap.String("path", path), zap.Error(err))
			continue
		}
		got, err := yolo.ReadClasses(path)
		if err != nil {
			log.Warn("skipping unreadable label", zap.String("path", path), zap.Error(err))
			continue
		}
		if !slices.Equal(want, got) {
			continue
		}
		if err := copyFile(path, filepath.Join(dst, name)); err != nil {
			return err
		}
		correct++
	}

	fmt.Fprintln(a.stdout, "Correct:", correct)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "create copy")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s", filepath.Base(src))
	}
	return errors.Wrapf(out.Close(), "close %s", filepath.Base(dst))
}
