// modgate-eval is an offline harness for calibrating the moderation taxonomy.
// It runs a local zero-shot classifier over sample messages read from stdin
// and prints per-category scores, which is useful when rewording category
// guidance without burning remote classifier quota.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nlpodyssey/cybertron/pkg/tasks"
	"github.com/nlpodyssey/cybertron/pkg/tasks/zeroshotclassifier"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stagelink/modgate/internal/moderation"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	policy, err := moderation.LoadPolicy()
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	modelsDir := "models"
	modelName := "MoritzLaurer/mDeBERTa-v3-base-mnli-xnli"
	if fromEnv := os.Getenv("MG_EVAL_MODEL"); fromEnv != "" {
		modelName = fromEnv
	}

	m, err := tasks.Load[zeroshotclassifier.Interface](&tasks.Config{
		ModelsDir:           modelsDir,
		ModelName:           modelName,
		DownloadPolicy:      tasks.DownloadMissing,
		ConversionPolicy:    tasks.ConvertMissing,
		ConversionPrecision: tasks.F32,
	})
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	labels := append(policy.Types(), "clean message")
	params := zeroshotclassifier.Parameters{
		CandidateLabels:    labels,
		HypothesisTemplate: "This message is about {}.",
		MultiLabel:         false,
	}

	fn := func(text string) error {
		start := time.Now()
		result, err := m.Classify(context.Background(), text, params)
		if err != nil {
			return err
		}
		log.Info().Float64("elapsed_s", time.Since(start).Seconds()).Msg("classified")

		for i := range result.Labels {
			fmt.Printf("%s\t%0.3f\n", result.Labels[i], result.Scores[i])
		}
		return nil
	}

	if err := forEachInput(os.Stdin, fn); err != nil {
		log.Fatal().Err(err).Send()
	}
}

// forEachInput calls the given callback function for each line of input.
func forEachInput(r io.Reader, callback func(text string) error) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Print("> ")
		scanner.Scan()
		text := scanner.Text()
		if text == "" {
			break
		}
		if err := callback(text); err != nil {
			return err
		}
	}
	return nil
}
