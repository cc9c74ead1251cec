package images

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-alpr/logger"
)

// Item is one decoded image file.
type Item struct {
	// Name is the file name without its directory.
	Name string
	// Image is the decoded picture.
	Image image.Image
}

// Size returns the dimensions of the decoded image.
func (i Item) Size() image.Point {
	return i.Image.Bounds().Size()
}

// Batch is a group of decoded images handed to a model in one call.
type Batch []Item

// Images returns the decoded pictures in batch order.
func (b Batch) Images() []image.Image {
	imgs := make([]image.Image, len(b))
	for i, item := range b {
		imgs[i] = item.Image
	}
	return imgs
}

// LoaderOptions configures LoadDirectory.
type LoaderOptions struct {
	// Workers is the number of concurrent decoders (default 4).
	Workers int
	// Batch is the number of items per batch (default 16).
	Batch int
	// Logger receives skipped files. Nil discards them.
	Logger *zap.Logger
}

// ListImages returns the paths of image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read image directory")
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// LoadDirectory decodes every image of dir on a pool of workers and streams
// them as batches. The last batch may be short. Files that fail to decode are
// logged and skipped. Items arrive in completion order, not name order.
//
// The returned channel is closed when every file has been handled or ctx is done.
//
// @example
//
//	batches, err := images.LoadDirectory(ctx, "frames", images.LoaderOptions{Workers: 4, Batch: 16})
//	if err != nil {
//	    return err
//	}
//	for batch := range batches {
//	    plates, err := detector.DetectBatch(ctx, batch)
//	    ...
//	}
func LoadDirectory(ctx context.Context, dir string, opts LoaderOptions) (<-chan Batch, error) {
	paths, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, paths, opts), nil
}

// LoadFiles is LoadDirectory over an explicit list of paths.
func LoadFiles(ctx context.Context, paths []string, opts LoaderOptions) <-chan Batch {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	size := opts.Batch
	if size <= 0 {
		size = 16
	}
	log := logger.Or(opts.Logger)

	pathQueue := make(chan string, 2*workers)
	itemQueue := make(chan Item, 2*size)
	batches := make(chan Batch)

	go func() {
		defer close(pathQueue)
		for _, p := range paths {
			select {
			case pathQueue <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pathQueue {
				img, err := Open(p)
				if err != nil {
					log.Warn("skipping unreadable image", zap.String("path", p), zap.Error(err))
					continue
				}
				select {
				case itemQueue <- Item{Name: filepath.Base(p), Image: img}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(itemQueue)
	}()

	go func() {
		defer close(batches)
		batch := make(Batch, 0, size)
		for item := range itemQueue {
			batch = append(batch, item)
			if len(batch) < size {
				continue
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return
			}
			batch = make(Batch, 0, size)
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-ctx.Done():
			}
		}
	}()

	return batches
}
