// Command nlu runs utterances through the rule-based understanding pipeline
// and prints the classification and extracted slots. Useful when tuning
// lexicon patterns without a running server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
	"github.com/weilintsai/tutorbot-go/internal/nlu/entity"
	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
)

var (
	jsonFlag   = flag.Bool("json", false, "Print results as JSON")
	periodFlag = flag.String("default-period", "下午", "Period word assumed for bare 12-hour numerals (e.g. 上午, 下午, 晚上)")
	levelFlag  = flag.String("log-level", "error", "Log level (debug|info|warn|error)")
)

type turnResult struct {
	Text       string            `json:"text"`
	Intent     string            `json:"intent"`
	Source     string            `json:"source"`
	Slots      map[string]string `json:"slots"`
	Confidence float64           `json:"confidence"`
	Issues     []string          `json:"issues,omitempty"`
}

func main() {
	flag.Parse()

	log := logger.New(*levelFlag)
	parser := timeparse.New(timeparse.Options{DefaultPeriod: *periodFlag})
	matcher := entity.NewMatcher(parser)

	extractor := nlu.NewExtractor(matcher, parser, nil, nil, nlu.ExtractorConfig{}, log)
	classifier := nlu.NewClassifier(extractor, nil, nlu.ClassifierConfig{}, log)

	run := func(text string) {
		now := time.Now()
		decision := classifier.Classify(context.Background(), text, nil, now)
		extraction := extractor.Extract(context.Background(), text, decision.Intent, "cli", nlu.ContextHints{}, now)

		result := turnResult{
			Text:       text,
			Intent:     string(decision.Intent),
			Source:     string(decision.Source),
			Slots:      make(map[string]string, len(extraction.Slots)),
			Confidence: extraction.Confidence,
			Issues:     extraction.Issues,
		}
		for k, v := range extraction.Slots {
			result.Slots[string(k)] = v
		}

		if *jsonFlag {
			out, _ := json.Marshal(result)
			fmt.Println(string(out))
			return
		}

		fmt.Printf("%s\n  intent: %s (%s, confidence %.2f)\n", result.Text, result.Intent, result.Source, result.Confidence)
		for k, v := range result.Slots {
			fmt.Printf("  %s: %s\n", k, v)
		}
		for _, issue := range result.Issues {
			fmt.Printf("  issue: %s\n", issue)
		}
	}

	if flag.NArg() > 0 {
		for _, text := range flag.Args() {
			run(text)
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		run(text)
	}
	if err := scanner.Err(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}
}
