// Package entity extracts candidate student names, course names and
// date/time expressions from raw utterances using ordered regex rule-sets
// with explicit precedence and deny-lists for false-match suppression.
package entity

import "regexp"

// rule is one extraction pattern. Rules are matched in slice order, highest
// precision first; the first candidate that survives the deny-list wins.
type rule struct {
	name    string
	pattern *regexp.Regexp
	group   int // capture group holding the candidate
}

// Student-name rules. Explicit possessive structures come before bare
// proximity rules so "小明的數學課" never falls through to weaker guesses.
var studentRules = []rule{
	{
		name:    "possessive_course",
		pattern: regexp.MustCompile(`(\p{Han}{2,4}(?:[和跟與与、]\p{Han}{2,4})*)的[\p{Han}A-Za-z]{1,8}[課课班]`),
		group:   1,
	},
	{
		name:    "help_verb",
		pattern: regexp.MustCompile(`[幫帮給给替]\s*(\p{Han}{2,4}?)(?:安排|新增|取消|記錄|记录|預約|预约|報名|报名|排|加|約|约|上)`),
		group:   1,
	},
	{
		name:    "student_marker",
		pattern: regexp.MustCompile(`(?:學生|学生|小孩|孩子)\s*(\p{Han}{2,4})`),
		group:   1,
	},
	{
		name:    "day_proximity",
		pattern: regexp.MustCompile(`(\p{Han}{2,4}(?:[和跟與与、]\p{Han}{2,4})*)(?:今天|明天|後天|后天|昨天|本週|本周|這週|这周|下週|下周|週[一二三四五六日]|周[一二三四五六日]|星期[一二三四五六日天])`),
		group:   1,
	},
	{
		name:    "possessive_schedule",
		pattern: regexp.MustCompile(`(\p{Han}{2,4})的(?:課表|课表|行程|進度|进度|安排)`),
		group:   1,
	},
}

// Course-name rules applied after the suffix scanner (see courseStemsBySuffix
// in matcher.go, which anchors at 課/课/班 and walks the stem backwards).
var courseRules = []rule{
	{
		name:    "category_suffix",
		pattern: regexp.MustCompile(`(\p{Han}{2,6}(?:教學|教学|培訓|培训|檢定|检定))`),
		group:   1,
	},
	{
		name:    "add_object",
		pattern: regexp.MustCompile(`(?:新增|安排|預約|预约)(?:一[堂節节])?([\p{Han}A-Za-z]{2,8})`),
		group:   1,
	},
}

// courseStemStops end the backward stem walk at particles, arrangement verbs
// and time-fragment runes that are never part of a course name.
var courseStemStops = map[rune]struct{}{
	'的': {}, '幫': {}, '帮': {}, '給': {}, '给': {}, '替': {},
	'排': {}, '上': {}, '約': {}, '约': {}, '加': {}, '增': {},
	'訂': {}, '订': {}, '改': {}, '消': {}, '錄': {}, '录': {},
	'問': {}, '问': {}, '詢': {}, '询': {}, '到': {}, '把': {},
	'天': {}, '週': {}, '周': {}, '點': {}, '点': {}, '午': {},
	'晚': {}, '早': {}, '有': {}, '要': {}, '想': {}, '是': {},
	'堂': {}, '節': {}, '节': {},
}

// courseSuffixFollowers are runes after 課 that signal the generic noun
// (課程, 課表, 課堂) rather than a course-name suffix.
var courseSuffixFollowers = map[rune]struct{}{
	'程': {}, '表': {}, '堂': {}, '本': {},
}

// denyWords rejects candidates that are time references, action verbs or
// generic nouns rather than real names. A candidate equal to or containing
// any of these tokens fails the rule and matching continues.
var denyWords = []string{
	// time references
	"今天", "明天", "後天", "后天", "昨天", "大後天",
	"本週", "本周", "這週", "这周", "下週", "下周", "上週", "上周",
	"早上", "上午", "中午", "下午", "晚上", "傍晚", "凌晨", "深夜",
	"星期", "禮拜", "時間", "时间", "時候", "小時",
	// action verbs
	"新增", "取消", "查詢", "查询", "修改", "刪除", "删除", "提醒",
	"記錄", "记录", "安排", "預約", "预约", "確認", "确认", "排課", "排课",
	// generic nouns
	"課程", "课程", "老師", "老师", "學生", "学生", "小孩", "孩子",
	"行程", "課表", "课表", "內容", "内容", "什麼", "什么", "哪些",
	"所有", "全部", "幫我", "帮我", "請問", "请问",
}

// nameStopRunes never occur inside a real student name. Rune-level guard
// backing up the token deny-list for spans the broad proximity rules absorb
// ("學課改到" captured ahead of 明天).
var nameStopRunes = map[rune]struct{}{
	'的': {}, '課': {}, '课': {}, '班': {},
	'改': {}, '到': {}, '排': {}, '約': {}, '约': {}, '加': {},
	'增': {}, '刪': {}, '删': {}, '查': {}, '詢': {}, '询': {},
	'取': {}, '消': {}, '錄': {}, '录': {}, '醒': {},
}

// courseCategoryWords are terms that already denote a class type; they keep
// their form instead of getting the canonical 課 suffix appended.
var courseCategoryWords = []string{
	"教學", "教学", "培訓", "培训", "檢定", "检定", "班",
}

// courseSuffixes are the recognized trailing course markers.
var courseSuffixes = []string{"課", "课", "班", "教學", "教学", "培訓", "培训", "檢定", "检定"}

// trailingWeekTokens are complete week fragments that proximity rules
// sometimes absorb into the tail of a captured name.
var trailingWeekTokens = regexp.MustCompile(`(?:[這这本下上每]?(?:週|周|星期|禮拜|礼拜)[一二三四五六日天]?|[這这本下上每][週周])$`)

// leadingParticles are helper verbs and particles absorbed into the head of
// a captured name ("幫小明" -> "小明").
var leadingParticles = regexp.MustCompile(`^[幫帮給给替和跟與与我是的把]+`)

// leadingVerbs are action verbs that greedy possessive rules absorb ahead
// of a name ("記錄小明的數學課" -> captured "記錄小明").
var leadingVerbs = regexp.MustCompile(`^(?:記錄|记录|紀錄|提醒|查詢|查询|取消|新增|修改|刪除|删除|安排|預約|预约)`)

// partialWeekHeads are single runes that only form a week token together
// with the text immediately following the matched span (e.g. a captured
// "小明下" followed by "週三"). They are stripped only in that case.
var partialWeekHeads = regexp.MustCompile(`[這这本下上每]$`)

// weekContinuations match the text right after a span whose capture ended in
// a partial week head.
var weekContinuations = regexp.MustCompile(`^(週|周|星期|禮拜|礼拜)`)
