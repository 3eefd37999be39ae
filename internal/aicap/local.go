// Local keyword classifier used as the last element of the parser chain.
// It never calls the network, so the chain always terminates with an
// answer even when every remote provider is down.
package aicap

import (
	"context"
	"strings"

	"github.com/go-ego/gse"
)

// localParser classifies by segmenting the utterance and counting intent
// keyword hits. Confidence is capped well below the remote providers so a
// degraded answer is never mistaken for a confident one.
type localParser struct {
	seg      gse.Segmenter
	keywords map[string][]string
}

const (
	localBaseConfidence = 0.3
	localHitConfidence  = 0.1
	localMaxConfidence  = 0.6
)

// localIntentKeywords mirrors the intent vocabulary of the rule classifier,
// trimmed to the terms that survive word segmentation.
var localIntentKeywords = map[string][]string{
	"add_course":     {"排", "安排", "新增", "加", "預約", "预约", "排課", "排课", "上課", "上课"},
	"query_schedule": {"查", "查詢", "查询", "看看", "幾點", "几点", "什麼時候", "什么时候", "課表", "课表", "行程"},
	"cancel_course":  {"取消", "刪除", "删除", "不上", "請假", "请假", "停課", "停课"},
	"modify_course":  {"改", "修改", "調整", "调整", "改到", "換到", "换到", "延後", "延后", "提前"},
	"set_reminder":   {"提醒", "記得", "记得", "別忘", "别忘", "鬧鐘", "闹钟"},
	"record_content": {"記錄", "记录", "紀錄", "筆記", "笔记", "教了", "教完", "進度", "进度"},
}

// newLocalParser builds the segmenter with the embedded dictionary.
func newLocalParser() (*localParser, error) {
	seg, err := gse.New()
	if err != nil {
		return nil, err
	}
	return &localParser{
		seg:      seg,
		keywords: localIntentKeywords,
	}, nil
}

// Parse scores each intent by keyword hits in the segmented text. It never
// returns an error.
func (p *localParser) Parse(_ context.Context, text string) (*ParseResult, error) {
	segments := p.seg.Cut(text, true)
	joined := strings.Join(segments, " ")

	bestIntent := ""
	bestHits := 0
	for intent, words := range p.keywords {
		hits := 0
		for _, w := range words {
			// Multi-character keywords may be split by the segmenter, so
			// fall back to substring matching on the original text.
			if strings.Contains(joined, w) || strings.Contains(text, w) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestIntent = intent
		}
	}

	if bestHits == 0 {
		return &ParseResult{
			Intent:       "unknown",
			Slots:        map[string]string{},
			Confidence:   0.1,
			FunctionName: "unknown",
		}, nil
	}

	confidence := localBaseConfidence + localHitConfidence*float64(bestHits)
	if confidence > localMaxConfidence {
		confidence = localMaxConfidence
	}

	return &ParseResult{
		Intent:       bestIntent,
		Slots:        map[string]string{},
		Confidence:   confidence,
		FunctionName: bestIntent,
	}, nil
}

// FillSlots returns no slots. Slot extraction degrades to the rule
// pipeline, which already ran before the chain was consulted.
func (p *localParser) FillSlots(_ context.Context, _, _ string, _ map[string]string) (map[string]string, error) {
	return map[string]string{}, nil
}

// Provider returns the local provider type.
func (p *localParser) Provider() Provider { return ProviderLocal }

// Close releases nothing. The segmenter holds no external resources.
func (p *localParser) Close() error { return nil }
