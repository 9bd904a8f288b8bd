// Package datasets decodes labelled image sets stored in the IDX format used
// by MNIST, plain or gzip-compressed.
package datasets

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/perceptron/pkg/errors"
	"github.com/YuminosukeSato/perceptron/pkg/log"
)

// idxUnsignedByte is the only element type supported.
const idxUnsignedByte = 0x08

var gzipMagic = []byte{0x1f, 0x8b}

// Dataset is a feature matrix with one label per row. Feature values are the
// raw pixel intensities, 0 to 255.
type Dataset struct {
	Images *mat.Dense
	Labels []int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// NFeatures returns the number of features per sample.
func (d *Dataset) NFeatures() int {
	_, c := d.Images.Dims()
	return c
}

// Classes returns the distinct labels in ascending order.
func (d *Dataset) Classes() []int {
	classes := lo.Uniq(d.Labels)
	slices.Sort(classes)
	return classes
}

// Head returns a view of the first n samples. The matrix shares storage with
// d.
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 || n >= d.Len() {
		return d
	}
	_, c := d.Images.Dims()
	return &Dataset{
		Images: d.Images.Slice(0, n, 0, c).(*mat.Dense),
		Labels: d.Labels[:n],
	}
}

// header reads the IDX magic number and dimensions.
func header(r io.Reader, op string) ([]int, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.NewValueError(op, fmt.Sprintf("reading magic number: %v", err))
	}
	if magic[0] != 0 || magic[1] != 0 {
		return nil, errors.NewValueError(op, fmt.Sprintf("bad magic number %#x", magic))
	}
	if magic[2] != idxUnsignedByte {
		return nil, errors.NewValueError(op, fmt.Sprintf("unsupported element type %#x", magic[2]))
	}

	dims := make([]int, magic[3])
	for i := range dims {
		var d uint32
		if err := binary.Read(r, binary.BigEndian, &d); err != nil {
			return nil, errors.NewValueError(op, fmt.Sprintf("reading dimension %d: %v", i, err))
		}
		dims[i] = int(d)
	}
	return dims, nil
}

// decompress returns r, or a gzip reader over it when r starts with the gzip
// magic bytes.
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(len(gzipMagic))
	if err == nil && slices.Equal(peek, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening gzip stream")
		}
		return zr, zr.Close, nil
	}
	return br, func() error { return nil }, nil
}

// ReadImages decodes an IDX image file with at least two dimensions. Each item
// becomes one row, its remaining dimensions flattened.
func ReadImages(r io.Reader) (*mat.Dense, error) {
	const op = "datasets.ReadImages"

	src, closeFn, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	dims, err := header(src, op)
	if err != nil {
		return nil, err
	}
	if len(dims) < 2 {
		return nil, errors.NewValueError(op, fmt.Sprintf("images need at least 2 dimensions, got %d", len(dims)))
	}

	n := dims[0]
	features := 1
	for _, d := range dims[1:] {
		features *= d
	}
	if n == 0 || features == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}

	raw := make([]byte, n*features)
	if _, err := io.ReadFull(src, raw); err != nil {
		return nil, errors.NewValueError(op, fmt.Sprintf("truncated pixel data: %v", err))
	}

	data := make([]float64, len(raw))
	for i, b := range raw {
		data[i] = float64(b)
	}
	return mat.NewDense(n, features, data), nil
}

// ReadLabels decodes a one-dimensional IDX label file.
func ReadLabels(r io.Reader) ([]int, error) {
	const op = "datasets.ReadLabels"

	src, closeFn, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	dims, err := header(src, op)
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, errors.NewValueError(op, fmt.Sprintf("labels need exactly 1 dimension, got %d", len(dims)))
	}
	if dims[0] == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}

	raw := make([]byte, dims[0])
	if _, err := io.ReadFull(src, raw); err != nil {
		return nil, errors.NewValueError(op, fmt.Sprintf("truncated label data: %v", err))
	}
	return lo.Map(raw, func(b byte, _ int) int { return int(b) }), nil
}

// Load reads an image file and its label file. When limit > 0 only the first
// limit samples are kept.
func Load(imagesPath, labelsPath string, limit int) (*Dataset, error) {
	logger := log.GetLogger().With(log.ComponentKey, "datasets")
	start := time.Now()

	images, err := readFile(imagesPath, ReadImages)
	if err != nil {
		return nil, err
	}
	labels, err := readFile(labelsPath, ReadLabels)
	if err != nil {
		return nil, err
	}

	rows, _ := images.Dims()
	if rows != len(labels) {
		return nil, errors.NewDimensionError("datasets.Load", rows, len(labels), 0)
	}

	ds := (&Dataset{Images: images, Labels: labels}).Head(limit)
	logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, imagesPath,
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, ds.NFeatures(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ds, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, errors.Wrapf(err, "decoding %s", path)
	}
	return v, nil
}
