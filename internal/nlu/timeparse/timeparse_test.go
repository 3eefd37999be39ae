package timeparse

import (
	"testing"
)

func TestChineseNumeral(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"零", 0, true},
		{"一", 1, true},
		{"兩", 2, true},
		{"两", 2, true},
		{"九", 9, true},
		{"十", 10, true},
		{"十一", 11, true},
		{"十二", 12, true},
		{"二十", 20, true},
		{"二十四", 24, true},
		{"四十五", 45, true},
		{"五十九", 59, true},
		{"", 0, false},
		{"百", 0, false},
		{"一二", 0, false},
		{"零十", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := ChineseNumeral(tt.input)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("ChineseNumeral(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	p := New(Options{})
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"afternoon chinese with half", "下午三點半", "15:30", true},
		{"morning chinese", "早上十點", "10:00", true},
		{"evening chinese with half", "晚上八點半", "20:30", true},
		{"noon twelve", "中午十二點", "12:00", true},
		{"noon one means 13", "中午一點", "13:00", true},
		{"early morning twelve means midnight", "凌晨十二點", "00:00", true},
		{"late night one stays small", "深夜一點", "01:00", true},
		{"afternoon arabic", "下午3點", "15:00", true},
		{"afternoon arabic colon", "下午3:30", "15:30", true},
		{"afternoon bare arabic", "下午3", "15:00", true},
		{"evening arabic with minutes", "晚上8點15分", "20:15", true},
		{"chinese minute compound", "下午四點四十五分", "16:45", true},
		{"pure colon 24h", "課改到18:30", "18:30", true},
		{"fullwidth digits folded", "下午３點", "15:00", true},
		{"pm suffix", "3:30pm", "15:30", true},
		{"pm prefix", "PM 3", "15:00", true},
		{"am noon becomes midnight", "12am", "00:00", true},
		{"bare chinese numeral", "三點", "03:00", true},
		{"bare arabic with half", "6點半", "06:30", true},
		{"twenty four o'clock rejected", "二十五點", "", false},
		{"minute out of range rejected", "18:75", "", false},
		{"no time expression", "幫小明排數學課", "", false},
		{"empty input", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := p.ParseClock(tt.input)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("ParseClock(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestParseClockPeriodBeforeBareNumeral(t *testing.T) {
	t.Parallel()
	// The qualifier must win over the bare numeral reading of the same span.
	p := New(Options{})
	got, ok := p.ParseClock("下午三點")
	if !ok || got != "15:00" {
		t.Fatalf("ParseClock(下午三點) = (%q, %v), want (15:00, true)", got, ok)
	}
}

func TestParseClockDefaultPeriod(t *testing.T) {
	t.Parallel()
	p := New(Options{DefaultPeriod: "下午"})

	tests := []struct {
		input    string
		expected string
	}{
		{"改成6點", "18:00"},
		{"改成6點半", "18:30"},
		{"三點", "15:00"},
		{"18:30", "18:30"}, // explicit 24h untouched
		{"早上6點", "06:00"}, // explicit period wins over the default
	}
	for _, tt := range tests {
		got, ok := p.ParseClock(tt.input)
		if !ok || got != tt.expected {
			t.Errorf("ParseClock(%q) = (%q, %v), want (%q, true)", tt.input, got, ok, tt.expected)
		}
	}
}

func TestPeriodRangeProperty(t *testing.T) {
	t.Parallel()
	// Every period-qualified hour must land inside the period's range
	// whenever the raw numeral can be reconciled into it.
	p := New(Options{})
	cases := []struct {
		input  string
		period string
	}{
		{"下午一點", "下午"},
		{"下午五點", "下午"},
		{"晚上七點", "晚上"},
		{"晚上十一點", "晚上"},
		{"早上六點", "早上"},
		{"上午九點", "上午"},
		{"中午十二點", "中午"},
	}
	for _, c := range cases {
		got, ok := p.ParseClock(c.input)
		if !ok {
			t.Errorf("ParseClock(%q) failed", c.input)
			continue
		}
		hour := int(got[0]-'0')*10 + int(got[1]-'0')
		r := periodRanges[c.period]
		if hour < r.min || hour > r.max {
			t.Errorf("ParseClock(%q) = %q, hour %d outside %s range [%d,%d]", c.input, got, hour, c.period, r.min, r.max)
		}
	}
}

func TestContainsClock(t *testing.T) {
	t.Parallel()
	p := New(Options{})
	if !p.ContainsClock("那就下午四點吧") {
		t.Error("expected ContainsClock to detect 下午四點")
	}
	if p.ContainsClock("小明的數學課") {
		t.Error("expected ContainsClock to reject text without time")
	}
}
