package nlu

import "regexp"

// intentRule scores one candidate intent. Scoring: +10 when any keyword is
// contained in the utterance, +15 when any pattern matches, +(20-priority)
// as tie-break weight. A rule is discarded when requireAny yields no hit or
// excludeAny yields one.
type intentRule struct {
	intent     Intent
	priority   int // lower = stronger
	keywords   []string
	patterns   []*regexp.Regexp
	requireAny []string
	excludeAny []string
}

// intentRules is the immutable rule table, loaded once. Order is not
// significant; precedence is expressed through scores and priorities.
var intentRules = []intentRule{
	{
		intent:   IntentCancelCourse,
		priority: 1,
		keywords: []string{"取消", "刪除", "删除", "請假", "请假", "不上了", "不去了"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(取消|刪除|删除|請假|请假).*[課课班]`),
			regexp.MustCompile(`[課课班].*(取消|不上|請假|请假)`),
		},
	},
	{
		intent:   IntentModifyCourse,
		priority: 2,
		keywords: []string{"修改", "改到", "改成", "調整", "调整", "延後", "延后", "提前", "換時間", "换时间"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[改調调換换].*(時間|时间|[點点]|天|[週周])`),
			regexp.MustCompile(`[課课].*(改|延後|延后|提前)`),
		},
		excludeAny: []string{"取消", "刪除", "删除"},
	},
	{
		intent:   IntentQuerySchedule,
		priority: 2,
		keywords: []string{"查詢", "查询", "課表", "课表", "行程", "有什麼課", "有什么课", "有哪些課", "有哪些课", "幾點的課", "几点的课"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(查|看看?|有)[^。]*([課课]|行程|安排)`),
			regexp.MustCompile(`(幾點|几点|什麼時候|什么时候)[^。]*([課课]|行程)`),
			regexp.MustCompile(`([課课]|行程)[^。]*(什麼時候|什么时候|幾點|几点|[嗎吗呢])`),
		},
		excludeAny: []string{"取消", "新增", "修改", "記錄", "记录", "提醒"},
	},
	{
		intent:   IntentAddCourse,
		priority: 3,
		keywords: []string{"新增", "增加", "排課", "排课", "加課", "加课", "預約", "预约", "報名", "报名", "安排"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(新增|安排|預約|预约|[排加約约])[^。]*[課课班]`),
			regexp.MustCompile(`[幫帮給给替]\p{Han}{2,4}(排|約|约|安排|加)`),
			regexp.MustCompile(`(每[週周天]|[週周][一二三四五六日])[^。]*(上[課课]|[上有].*[課课])`),
		},
		excludeAny: []string{"取消", "查詢", "查询", "改到", "改成"},
	},
	{
		intent:   IntentSetReminder,
		priority: 2,
		keywords: []string{"提醒", "記得提醒", "记得提醒", "通知我", "叫我"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`提醒[^。]*`),
			regexp.MustCompile(`([點点]|時候|时候|之前).*(提醒|通知)`),
		},
	},
	{
		intent:   IntentRecordContent,
		priority: 3,
		keywords: []string{"記錄", "记录", "紀錄", "筆記", "笔记", "上了什麼", "上了什么", "教了", "進度", "进度"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(記錄|记录|紀錄)[^。]*`),
			regexp.MustCompile(`今天(上了|教了|學了|学了)`),
		},
		excludeAny: []string{"提醒"},
	},
	{
		intent:   IntentConfirmAction,
		priority: 5,
		keywords: []string{"確認", "确认", "沒問題", "没问题"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(好的?|對|对|嗯|可以|沒問題|没问题|確定|确定|確認|确认|是的?|ok|OK|Ok)[啊喔哦啦呀！!。的]*$`),
		},
	},
}

// intentSwitchKeywords detect an explicit intent change during a supplement
// turn; their presence cancels the pending task instead of treating the
// utterance as a slot answer.
var intentSwitchKeywords = []string{
	"查詢", "查询", "新增", "取消", "修改", "刪除", "删除",
	"課表", "课表", "排課", "排课", "預約", "预约", "提醒",
}

// cancelWords end a pending task when uttered alone.
var cancelWords = []string{"取消", "算了", "不用了", "不要了", "放棄", "放弃"}

// retryWords re-fire a task whose execution failed retryably, reusing the
// preserved slots.
var retryWords = []string{
	"再試一次", "再试一次", "再試", "再试", "重試", "重试",
	"再來一次", "再来一次", "確定", "确定", "好", "好的", "可以",
}

// contextGatedIntents are only valid with a recent action or an active
// confirmation state; otherwise they are downgraded to unknown.
var contextGatedIntents = map[Intent]struct{}{
	IntentConfirmAction: {},
}
