// Function declarations for the tutoring NLU parser.
//
// Design split:
// - functions.go: WHAT each function does (descriptions + parameter formats)
// - prompts.go: WHEN/HOW to use (decision rules, trigger conditions)
//
// IMPORTANT: declarations use genai.Type* constants (genai.TypeString = "STRING").
// When converting to OpenAI-compatible format, types must be lowercased to
// match the JSON Schema spec. See buildOpenAITools in openai.go.
package aicap

import "google.golang.org/genai"

// slot parameter schemas shared across intent functions.
func slotSchemas() map[string]*genai.Schema {
	return map[string]*genai.Schema{
		"studentName": {
			Type:        genai.TypeString,
			Description: "學生姓名，2-4 個中文字。範例：「小明」「陳大文」。不確定時省略，不要填 null。",
		},
		"courseName": {
			Type:        genai.TypeString,
			Description: "課程名稱，保留「課」字尾。範例：「數學課」「N2日文課」。",
		},
		"scheduleTime": {
			Type:        genai.TypeString,
			Description: "上課時間，24 小時制 HH:MM。「下午三點」→「15:00」。",
		},
		"courseDate": {
			Type:        genai.TypeString,
			Description: "上課日期，YYYY-MM-DD。相對日期需換算。",
		},
		"dayOfWeek": {
			Type:        genai.TypeString,
			Description: "星期幾，標準寫法「週一」到「週日」。",
		},
		"recurring": {
			Type:        genai.TypeString,
			Description: "是否每週重複，\"true\" 或 \"false\"。「每週三」→ true。",
		},
		"reminderTime": {
			Type:        genai.TypeString,
			Description: "提醒時間，24 小時制 HH:MM。",
		},
		"content": {
			Type:        genai.TypeString,
			Description: "提醒或記錄的自由文字內容。",
		},
		"scope": {
			Type:        genai.TypeString,
			Description: "查詢範圍：「今天」「本週」「下週」「全部」其中之一。",
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Description: "此分類的信心值，0 到 1 之間的小數。",
		},
	}
}

// pick builds a schema holding the named slot parameters plus confidence.
func pick(names ...string) *genai.Schema {
	all := slotSchemas()
	props := map[string]*genai.Schema{"confidence": all["confidence"]}
	for _, n := range names {
		props[n] = all[n]
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   []string{"confidence"},
	}
}

// BuildIntentFunctions returns the function declarations for intent parsing.
// One function per tutoring intent; the model must pick exactly one.
func BuildIntentFunctions() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "add_course",
			Description: "為學生新增或預約一堂課。範例：「幫小明每週三下午三點排數學課」。",
			Parameters:  pick("studentName", "courseName", "scheduleTime", "courseDate", "dayOfWeek", "recurring"),
		},
		{
			Name:        "query_schedule",
			Description: "查詢課表或行程。範例:「小明明天有什麼課」「查詢本週課表」。",
			Parameters:  pick("studentName", "courseName", "courseDate", "dayOfWeek", "scope"),
		},
		{
			Name:        "cancel_course",
			Description: "取消或請假一堂已排的課。範例：「取消小明明天的數學課」。",
			Parameters:  pick("studentName", "courseName", "courseDate"),
		},
		{
			Name:        "modify_course",
			Description: "修改已排課程的時間或日期。範例：「小明的數學課改到下午四點」。",
			Parameters:  pick("studentName", "courseName", "scheduleTime", "courseDate", "dayOfWeek"),
		},
		{
			Name:        "set_reminder",
			Description: "在指定時間提醒使用者一件事。範例：「晚上八點提醒我帶課本」。",
			Parameters:  pick("reminderTime", "content", "studentName"),
		},
		{
			Name:        "record_content",
			Description: "記錄一堂課的教學內容或進度。範例：「記錄小明的數學課：教完第三章」。",
			Parameters:  pick("studentName", "courseName", "content"),
		},
		{
			Name:        "unknown",
			Description: "與家教排課無關的輸入（閒聊、問候、無法理解）。",
			Parameters:  pick(),
		},
	}
}

// IntentSlotKeys maps each function name to the slot parameters it may carry.
// Used to extract string values from function-call arguments.
var IntentSlotKeys = map[string][]string{
	"add_course":     {"studentName", "courseName", "scheduleTime", "courseDate", "dayOfWeek", "recurring"},
	"query_schedule": {"studentName", "courseName", "courseDate", "dayOfWeek", "scope"},
	"cancel_course":  {"studentName", "courseName", "courseDate"},
	"modify_course":  {"studentName", "courseName", "scheduleTime", "courseDate", "dayOfWeek"},
	"set_reminder":   {"reminderTime", "content", "studentName"},
	"record_content": {"studentName", "courseName", "content"},
	"unknown":        {},
}

// BuildSlotFunction returns the single function declaration used for
// slot-only extraction: every slot optional, no confidence needed.
func BuildSlotFunction() *genai.FunctionDeclaration {
	all := slotSchemas()
	props := make(map[string]*genai.Schema, len(all)-1)
	for name, schema := range all {
		if name == "confidence" {
			continue
		}
		props[name] = schema
	}
	return &genai.FunctionDeclaration{
		Name:        "fill_slots",
		Description: "從句子中抽取排課欄位。找不到的欄位直接省略。",
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
		},
	}
}
