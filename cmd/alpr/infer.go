package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/config"
	"github.com/nvr-ai/go-alpr/detector"
	"github.com/nvr-ai/go-alpr/images"
	"github.com/nvr-ai/go-alpr/logger"
	"github.com/nvr-ai/go-alpr/plate"
	"github.com/nvr-ai/go-alpr/profiler"
	"github.com/nvr-ai/go-alpr/yolo"
)

// modelFlags are shared by the batch inference commands.
type modelFlags struct {
	config *string
	batch  *int
	thresh *float64
}

func (a *app) modelFlagSet(name string) (*flag.FlagSet, *modelFlags) {
	fs := a.flagSet(name)
	return fs, &modelFlags{
		config: fs.String("config", "", "YAML configuration file"),
		batch:  fs.Int("batch", 0, "images per inference, 0 keeps the configured value"),
		thresh: fs.Float64("thresh", -1, "confidence threshold, negative keeps the configured value"),
	}
}

// apply overrides cfg with the flags that were set.
func (f *modelFlags) apply(cfg *config.Config, section *config.ModelConfig) {
	if *f.batch > 0 {
		cfg.Batch = *f.batch
	}
	if *f.thresh >= 0 {
		section.Threshold = float32(*f.thresh)
	}
}

// labelName is the label file written for an image.
func labelName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
}

// detectSink writes the result for one image with a plate.
type detectSink func(dst string, item images.Item, box boxes.Box) error

func detectSinks(c color.Color) map[string]detectSink {
	return map[string]detectSink{
		"draw": func(dst string, item images.Item, box boxes.Box) error {
			canvas := images.Canvas(item.Image)
			images.DrawBox(canvas, box, c)
			return images.Save(filepath.Join(dst, item.Name), canvas)
		},
		"label": func(dst string, item images.Item, box boxes.Box) error {
			return yolo.SaveLabels(filepath.Join(dst, labelName(item.Name)), []boxes.AnnotatedBox{{Class: 0, Box: box}})
		},
		"crop": func(dst string, item images.Item, box boxes.Box) error {
			crop, err := images.Crop(item.Image, box)
			if err != nil {
				return err
			}
			return images.Save(filepath.Join(dst, item.Name), crop)
		},
	}
}

// detect finds the plate of every image in src and writes it to dst.
func (a *app) detect(ctx context.Context, args []string) error {
	fs, flags := a.modelFlagSet("detect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 3); err != nil {
		return err
	}
	cfg, err := setup(*flags.config)
	if err != nil {
		return err
	}
	flags.apply(&cfg, &cfg.Detector)
	c, err := cfg.Draw.RGBA()
	if err != nil {
		return err
	}

	mode, src, dst := fs.Arg(0), fs.Arg(1), fs.Arg(2)
	sink, ok := detectSinks(c)[mode]
	if !ok {
		return errors.Errorf("detect: unknown mode %q, want draw, label or crop", mode)
	}

	log := logger.Log()
	d, err := detector.NewDetector(cfg.Detector, log)
	if err != nil {
		return err
	}
	defer d.Close()

	prof := startProfiler(ctx)
	defer prof.Stop()

	found, total := 0, 0
	err = eachBatch(ctx, cfg, src, dst, func(ctx context.Context, batch images.Batch) error {
		done := prof.StartOperation("detect_batch")
		plates, err := d.DetectBatch(ctx, batch.Images())
		done()
		if err != nil {
			return err
		}
		prof.RecordMetric("batch_size", float64(len(batch)))
		total += len(batch)
		for i, box := range plates {
			if box == nil {
				continue
			}
			if err := sink(dst, batch[i], *box); err != nil {
				log.Warn("failed to write result", zap.String("path", batch[i].Name), zap.Error(err))
				continue
			}
			found++
		}
		return nil
	})
	if err != nil {
		return err
	}
	prof.Report()
	log.Info("detection finished", zap.Int("images", total), zap.Int("plates", found))
	return nil
}

// recognizeSink writes the symbols found in one plate image.
type recognizeSink func(dst string, item images.Item, symbols []plate.Symbol) error

func recognizeSinks(c color.Color) map[string]recognizeSink {
	return map[string]recognizeSink{
		"draw": func(dst string, item images.Item, symbols []plate.Symbol) error {
			canvas := images.Canvas(item.Image)
			images.DrawSymbols(canvas, symbols, image.Point{}, c)
			return images.Save(filepath.Join(dst, item.Name), canvas)
		},
		"label": func(dst string, item images.Item, symbols []plate.Symbol) error {
			anns := make([]boxes.AnnotatedBox, len(symbols))
			for i, s := range symbols {
				anns[i] = boxes.AnnotatedBox{Class: s.ID, Box: s.Rect}
			}
			return yolo.SaveLabels(filepath.Join(dst, labelName(item.Name)), anns)
		},
	}
}

// recognize reads the symbols of every plate image in src and writes them to dst.
func (a *app) recognize(ctx context.Context, args []string) error {
	fs, flags := a.modelFlagSet("recognize")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 3); err != nil {
		return err
	}
	cfg, err := setup(*flags.config)
	if err != nil {
		return err
	}
	flags.apply(&cfg, &cfg.Recognizer)
	c, err := cfg.Draw.RGBA()
	if err != nil {
		return err
	}

	mode, src, dst := fs.Arg(0), fs.Arg(1), fs.Arg(2)
	sink, ok := recognizeSinks(c)[mode]
	if !ok {
		return errors.Errorf("recognize: unknown mode %q, want draw or label", mode)
	}

	log := logger.Log()
	r, err := detector.NewRecognizer(cfg.Recognizer, log)
	if err != nil {
		return err
	}
	defer r.Close()

	prof := startProfiler(ctx)
	defer prof.Stop()

	read, total := 0, 0
	err = eachBatch(ctx, cfg, src, dst, func(ctx context.Context, batch images.Batch) error {
		done := prof.StartOperation("recognize_batch")
		symbols, err := r.RecognizeBatch(ctx, batch.Images())
		done()
		if err != nil {
			return err
		}
		prof.RecordMetric("batch_size", float64(len(batch)))
		total += len(batch)
		for i, s := range symbols {
			if len(s) == 0 {
				continue
			}
			if err := sink(dst, batch[i], s); err != nil {
				log.Warn("failed to write result", zap.String("path", batch[i].Name), zap.Error(err))
				continue
			}
			read++
		}
		return nil
	})
	if err != nil {
		return err
	}
	prof.Report()
	log.Info("recognition finished", zap.Int("images", total), zap.Int("plates", read))
	return nil
}

func startProfiler(ctx context.Context) *profiler.Profiler {
	prof := profiler.New(profiler.Options{Logger: logger.Log()})
	prof.Start(ctx)
	return prof
}

// eachBatch streams the images of src to fn and stops at the first error.
// The loader is cancelled on every return path.
func eachBatch(ctx context.Context, cfg config.Config, src, dst string, fn func(context.Context, images.Batch) error) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, err := images.LoadDirectory(ctx, src, images.LoaderOptions{
		Workers: cfg.Workers,
		Batch:   cfg.Batch,
		Logger:  logger.Log(),
	})
	if err != nil {
		return err
	}
	for batch := range batches {
		if err := fn(ctx, batch); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// read answers image names from stdin with the plate found in dir/name and
// writes the annotated image to out.
func (a *app) read(ctx context.Context, args []string) error {
	fs := a.flagSet("read")
	path := fs.String("config", "", "YAML configuration file")
	out := fs.String("out", "plate.png", "annotated image of the last read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := expectArgs(fs, 1); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	c, err := cfg.Draw.RGBA()
	if err != nil {
		return err
	}

	p, err := detector.NewPipeline(cfg, logger.Log())
	if err != nil {
		return err
	}
	defer p.Close()

	dir := fs.Arg(0)
	scanner := bufio.NewScanner(a.stdin)
	for {
		fmt.Fprint(a.stdout, "> ")
		if !scanner.Scan() || ctx.Err() != nil {
			fmt.Fprintln(a.stdout)
			return scanner.Err()
		}
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if err := a.readOne(ctx, p, filepath.Join(dir, name), *out, c); err != nil {
			fmt.Fprintln(a.stdout, err)
		}
	}
}

func (a *app) readOne(ctx context.Context, p *detector.Pipeline, path, out string, c color.Color) error {
	img, err := images.Open(path)
	if err != nil {
		return err
	}
	found, err := p.Read(ctx, img)
	if err != nil {
		return err
	}
	if found == nil {
		fmt.Fprintln(a.stdout, "No plate")
		return nil
	}

	canvas := images.Canvas(img)
	images.DrawPlate(canvas, *found, c)
	if err := images.Save(out, canvas); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, found)
	return nil
}
