package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/crislerwin/tiny-attention/pkg/config"
	"github.com/crislerwin/tiny-attention/pkg/model"
	"github.com/crislerwin/tiny-attention/pkg/tokenizer"
	"github.com/crislerwin/tiny-attention/pkg/trainer"
)

var questions = []string{
	"what is the capital of France?",
	"how tall is the Eiffel Tower?",
	"what is the population of Tokyo?",
	"what is the capital of China?",
	"how deep is the Mariana Trench?",
}

var answers = []string{
	"Paris is the capital of France. It is known as the city of love.",
	"The Eiffel Tower is 330 meters tall. It was built in 1889.",
	"The population of Tokyo is approximately 14 million people.",
	"The capital of China is Beijing.",
	"The Mariana Trench is approximately 11034 meters deep.",
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON attention config")
		loadPath   = flag.String("load", "", "restore weights from a JSON snapshot before training")
		prompt     = flag.String("prompt", "what is the capital of France?", "question to answer after training")
		dropout    = flag.Float64("dropout", 0, "dropout rate applied to the query/key/value projections")
		overrides  config.Overrides
	)
	flag.IntVar(&overrides.DModel, "d-model", 0, "model width, also the encoded matrix size")
	flag.IntVar(&overrides.NumHeads, "heads", 0, "number of attention heads")
	flag.Float64Var(&overrides.LearningRate, "lr", 0, "learning rate")
	flag.IntVar(&overrides.Epochs, "epochs", 0, "training epochs")
	flag.IntVar(&overrides.LogEvery, "log-every", 0, "log the loss every N epochs")
	flag.StringVar(&overrides.WeightsPath, "save", "", "write the trained weights to this JSON file")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "dropout" {
			overrides.Dropout = dropout
		}
	})

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	attn, err := buildAttention(cfg, *loadPath)
	if err != nil {
		log.Fatalf("build attention: %v", err)
	}

	tok := tokenizer.NewTokenizer(nil)
	for i := range questions {
		tok.AddText(questions[i])
		tok.AddText(answers[i])
	}
	samples := buildSamples(tok, cfg.DModel)
	log.Printf("vocab=%d samples=%d d_model=%d heads=%d", tok.VocabSize(), len(samples), cfg.DModel, cfg.NumHeads)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Epochs > 0 {
		history, err := trainer.Run(ctx, trainer.RunConfig{
			Epochs:       cfg.Epochs,
			LearningRate: cfg.LearningRate,
			LogEvery:     cfg.LogEvery,
		}, attn, samples)
		if history != nil {
			if epoch, loss, ok := history.Best(); ok {
				log.Printf("lowest loss %.6f at epoch %d with learning rate %g", loss, epoch, cfg.LearningRate)
			}
		}
		if err != nil {
			log.Fatalf("training stopped: %v", err)
		}
		log.Printf("weight norms query=%.4f key=%.4f value=%.4f output=%.4f",
			attn.QueryWeights.Norm(), attn.KeyWeights.Norm(), attn.ValueWeights.Norm(), attn.OutputWeights.Norm())
	}

	if cfg.WeightsPath != "" {
		if err := attn.Save().SaveJSON(cfg.WeightsPath); err != nil {
			log.Fatalf("save weights: %v", err)
		}
		log.Printf("weights written to %s", cfg.WeightsPath)
	}

	answer, err := respond(attn, tok, *prompt, cfg.DModel)
	if err != nil {
		log.Fatalf("respond: %v", err)
	}
	fmt.Printf("Q: %s\nA: %s\n", *prompt, answer)
}

func buildAttention(cfg *config.AttentionConfig, loadPath string) (*model.MultiheadAttention, error) {
	if loadPath == "" {
		return model.NewFromConfig(cfg)
	}
	snap, err := model.LoadFromJSON(loadPath)
	if err != nil {
		return nil, err
	}
	if snap.DModel != cfg.DModel || snap.NumHeads != cfg.NumHeads {
		return nil, fmt.Errorf("snapshot is %dx%d heads, config wants %dx%d", snap.DModel, snap.NumHeads, cfg.DModel, cfg.NumHeads)
	}
	attn, err := model.NewFromSnapshot(snap, cfg.Dropout)
	if err != nil {
		return nil, err
	}
	attn.StableSoftmax = cfg.StableSoftmax
	return attn, nil
}

func buildSamples(tok *tokenizer.Tokenizer, dModel int) []trainer.Sample {
	samples := make([]trainer.Sample, 0, len(questions))
	for i := range questions {
		query := tok.ToMatrix(questions[i], dModel, dModel)
		samples = append(samples, trainer.Sample{
			Query:  query,
			Key:    query.PositionEncode(),
			Value:  query,
			Target: tok.ToMatrix(answers[i], dModel, dModel),
		})
	}
	return samples
}

func respond(attn *model.MultiheadAttention, tok *tokenizer.Tokenizer, prompt string, dModel int) (string, error) {
	query := tok.ToMatrix(prompt, dModel, dModel)
	output, err := attn.Forward(query, query.PositionEncode(), query)
	if err != nil {
		return "", err
	}
	return tok.FromMatrix(output), nil
}
