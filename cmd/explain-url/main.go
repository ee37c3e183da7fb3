// Command explain-url fetches a web page, strips it to plain text and
// explains a remote classifier's prediction for it, printing the most
// influential words and optionally persisting the explanation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/lumen/internal/classifier"
	"github.com/cognicore/lumen/internal/htmltext"
	"github.com/cognicore/lumen/pkg/lumen"
	"github.com/cognicore/lumen/pkg/lumen/config"
	"github.com/cognicore/lumen/pkg/lumen/store"
	"github.com/cognicore/lumen/pkg/lumen/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	url := flag.String("url", "", "page to explain (required)")
	labelsFlag := flag.String("labels", "1", "comma-separated label indices to explain")
	topLabels := flag.Int("top", 0, "explain the K most probable labels instead of -labels")
	flag.Parse()

	if *url == "" {
		log.Fatal("-url is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal("load config: ", err)
		}
	}
	if cfg.Classifier.BaseURL == "" {
		log.Fatal("config has no classifier.base_url")
	}

	labels, err := parseLabels(*labelsFlag)
	if err != nil {
		log.Fatal("parse -labels: ", err)
	}

	text, err := fetchText(*url)
	if err != nil {
		log.Fatal("fetch page: ", err)
	}
	log.Printf("fetched %s (%d bytes of text)", *url, len(text))

	client := &classifier.Client{
		BaseURL: cfg.Classifier.BaseURL,
		APIKey:  cfg.Classifier.APIKey,
	}
	if cfg.Classifier.TimeoutSeconds > 0 {
		client.HTTPClient = &http.Client{
			Timeout: time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second,
		}
	}

	ctx := context.Background()
	explainer := cfg.NewExplainer()

	exp, err := explainer.ExplainInstance(ctx, lumen.ExplainRequest{
		Text:        text,
		Predict:     client.Probabilities,
		Labels:      labels,
		TopLabels:   *topLabels,
		NumFeatures: cfg.NumFeatures,
		NumSamples:  cfg.NumSamples,
	})
	if err != nil {
		log.Fatal("explain: ", err)
	}

	fmt.Printf("explanation %s\n", exp.ID)
	fmt.Printf("prediction: %v\n", exp.PredictProba)
	for _, label := range exp.Labels() {
		fmt.Printf("\nlabel %s:\n", exp.ClassName(label))
		list, err := exp.AsList(label)
		if err != nil {
			log.Fatal(err)
		}
		for _, ww := range list {
			fmt.Printf("  %-20s %+.4f\n", ww.Word, ww.Weight)
		}
	}

	if cfg.StorePath != "" {
		s, err := sqlite.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			log.Fatal("open store: ", err)
		}
		defer s.Close()

		rec, err := store.NewRecord(exp)
		if err != nil {
			log.Fatal("build record: ", err)
		}
		if err := s.SaveExplanation(ctx, rec); err != nil {
			log.Fatal("save explanation: ", err)
		}
		log.Printf("saved explanation %s to %s", exp.ID, cfg.StorePath)
	}
}

func parseLabels(s string) ([]int, error) {
	var labels []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func fetchText(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	return htmltext.Extract(resp.Body)
}
