package main

import (
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/perceptron/config"
	"github.com/YuminosukeSato/perceptron/datasets"
	"github.com/YuminosukeSato/perceptron/pkg/log"
	"github.com/YuminosukeSato/perceptron/sklearn/linear_model"
	"github.com/YuminosukeSato/perceptron/sklearn/multiclass"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train one perceptron per class and report accuracy",
	Example: `  perceptron train \
    --train-images train-images-idx3-ubyte.gz --train-labels train-labels-idx1-ubyte.gz \
    --test-images t10k-images-idx3-ubyte.gz --test-labels t10k-labels-idx1-ubyte.gz \
    --max-iter 10 --jobs 0 --plot mistakes.png`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(settings, configPath)
		if err != nil {
			return err
		}
		if err := log.SetupLogger(cfg.LogLevel); err != nil {
			return err
		}
		return runTrain(cmd, cfg)
	},
}

func init() {
	flags := trainCommand.Flags()
	flags.String("train-images", "", "IDX file with training images (.gz accepted)")
	flags.String("train-labels", "", "IDX file with training labels (.gz accepted)")
	flags.String("test-images", "", "IDX file with test images (.gz accepted)")
	flags.String("test-labels", "", "IDX file with test labels (.gz accepted)")
	flags.IntSlice("classes", nil, "classes to train (default: every label in the training set)")
	flags.Int("max-iter", config.DefaultMaxIter, "maximum number of epochs per class")
	flags.IntP("jobs", "j", config.DefaultJobs, "classes trained at once (0 = one per CPU)")
	flags.Int("limit", 0, "use only the first N samples of each set (0 = all)")
	flags.String("plot", "", "write a PNG of mistakes per epoch to this path")
	flags.Bool("least-negative-fallback", false, "when no class votes positive, pick the highest score instead of the lowest")

	for key, flag := range map[string]string{
		"train_images":            "train-images",
		"train_labels":            "train-labels",
		"test_images":             "test-images",
		"test_labels":             "test-labels",
		"classes":                 "classes",
		"max_iter":                "max-iter",
		"jobs":                    "jobs",
		"limit":                   "limit",
		"plot":                    "plot",
		"least_negative_fallback": "least-negative-fallback",
	} {
		_ = settings.BindPFlag(key, flags.Lookup(flag))
	}
}

func runTrain(cmd *cobra.Command, cfg *config.Config) error {
	logger := log.GetLogger().With(log.ComponentKey, "cli")

	trainSet, err := datasets.Load(cfg.TrainImages, cfg.TrainLabels, cfg.Limit)
	if err != nil {
		return err
	}
	var testSet *datasets.Dataset
	if cfg.HasTestSet() {
		if testSet, err = datasets.Load(cfg.TestImages, cfg.TestLabels, cfg.Limit); err != nil {
			return err
		}
	}

	classes := cfg.Classes
	if len(classes) == 0 {
		classes = trainSet.Classes()
	}

	bar := progressbar.NewOptions(len(classes),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("training"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	opts := []multiclass.OneVsRestOption{
		multiclass.WithNJobs(cfg.Jobs),
		multiclass.WithFitCallback(func(int, *linear_model.Perceptron) {
			_ = bar.Add(1)
		}),
	}
	if cfg.LeastNegativeFallback {
		opts = append(opts, multiclass.WithLeastNegativeFallback())
	}

	clf, err := multiclass.NewOneVsRestClassifier(classes, trainSet.NFeatures(), opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := clf.Fit(trainSet.Images, trainSet.Labels, cfg.MaxIter); err != nil {
		return err
	}
	_ = bar.Finish()
	logger.Info("Ensemble trained",
		log.ClassesKey, len(classes),
		log.SamplesKey, trainSet.Len(),
		log.MaxIterKey, cfg.MaxIter,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	report, err := buildReport(clf, trainSet, testSet)
	if err != nil {
		return err
	}
	if err := report.Render(cmd.OutOrStdout()); err != nil {
		return err
	}

	if cfg.Plot != "" {
		if err := plotMistakes(clf, cfg.Plot); err != nil {
			return err
		}
		logger.Info("Mistake history plotted", log.PathKey, cfg.Plot)
	}
	return nil
}
