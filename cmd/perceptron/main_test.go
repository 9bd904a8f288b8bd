package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/perceptron/config"
	"github.com/YuminosukeSato/perceptron/datasets"
	"github.com/YuminosukeSato/perceptron/pkg/errors"
	"github.com/YuminosukeSato/perceptron/pkg/log"
	"github.com/YuminosukeSato/perceptron/sklearn/multiclass"
)

func writeIDX(t *testing.T, path string, dims []uint32, payload []byte) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0x08, byte(len(dims))})
	for _, d := range dims {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, d))
	}
	buf.Write(payload)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

// writeOneHotSet writes n 1x3 images whose bright pixel encodes the label.
func writeOneHotSet(t *testing.T, dir, prefix string, labels []byte) (string, string) {
	t.Helper()
	pixels := make([]byte, 0, 3*len(labels))
	for _, l := range labels {
		row := []byte{0, 0, 0}
		row[l] = 255
		pixels = append(pixels, row...)
	}
	images := filepath.Join(dir, prefix+"-images")
	labelsPath := filepath.Join(dir, prefix+"-labels")
	writeIDX(t, images, []uint32{uint32(len(labels)), 1, 3}, pixels)
	writeIDX(t, labelsPath, []uint32{uint32(len(labels))}, labels)
	return images, labelsPath
}

func quiet(t *testing.T) {
	t.Helper()
	prev := log.GetLogger()
	logger, _ := log.NewTestLogger(log.LevelError)
	log.SetLogger(logger)
	prevWarn := errors.SetWarningHandler(func(error) {})
	t.Cleanup(func() {
		log.SetLogger(prev)
		errors.SetWarningHandler(prevWarn)
		errors.SetZerologWarnFunc(nil)
	})
}

func TestRunTrain(t *testing.T) {
	quiet(t)
	dir := t.TempDir()
	trainImages, trainLabels := writeOneHotSet(t, dir, "train", []byte{0, 1, 2, 2, 1, 0})
	testImages, testLabels := writeOneHotSet(t, dir, "test", []byte{2, 0, 1})
	plotPath := filepath.Join(dir, "mistakes.png")

	cfg := &config.Config{
		TrainImages: trainImages,
		TrainLabels: trainLabels,
		TestImages:  testImages,
		TestLabels:  testLabels,
		MaxIter:     10,
		Jobs:        2,
		LogLevel:    "error",
		Plot:        plotPath,
	}
	require.NoError(t, cfg.Validate())

	var stdout, stderr bytes.Buffer
	trainCommand.SetOut(&stdout)
	trainCommand.SetErr(&stderr)
	require.NoError(t, runTrain(trainCommand, cfg))

	out := stdout.String()
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "Confusion matrix")

	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestBuildReport(t *testing.T) {
	quiet(t)
	dir := t.TempDir()
	images, labels := writeOneHotSet(t, dir, "train", []byte{0, 1, 2})
	trainSet, err := datasets.Load(images, labels, 0)
	require.NoError(t, err)

	clf, err := multiclass.NewOneVsRestClassifier([]int{0, 1, 2}, 3)
	require.NoError(t, err)
	require.NoError(t, clf.Fit(trainSet.Images, trainSet.Labels, 5))

	report, err := buildReport(clf, trainSet, nil)
	require.NoError(t, err)
	assert.False(t, report.HasTest)
	assert.Nil(t, report.Confusion)
	assert.Equal(t, 1.0, report.TrainAcc)
	require.Len(t, report.Rows, 3)
	for i, row := range report.Rows {
		assert.Equal(t, i, row.Class)
		assert.Equal(t, 1.0, row.TrainAcc)
		assert.True(t, row.Converged)
		assert.Equal(t, 2, row.Epochs)
		assert.Zero(t, row.Mistakes)
	}

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf))
	assert.Contains(t, buf.String(), "overall")
	assert.NotContains(t, buf.String(), "Confusion matrix")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCommand.SetOut(&out)
	rootCommand.SetArgs([]string{"version"})
	require.NoError(t, rootCommand.Execute())
	assert.Equal(t, Version+"\n", out.String())
}
