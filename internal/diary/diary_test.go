package diary

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleDiary = `# 周一
## 今日待办
- [ ] 写周报
- [x] 跑步 ✅ 2024-05-05
- [ ] 写周报
## 随手记录
* 早上开会
1. 午饭吃面
## 杂项
- 不该出现
## 心情和想法
- 有点累
  - 但是开心
## 附件 / 链接
- https://example.com
## AI 说
旧的反馈
### 小结
继续
`

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestParseSections(t *testing.T) {
	rec := Parse(mustDate(t, "2024-05-06"), []byte(sampleDiary), DefaultVariants())

	if rec.Title != "周一" {
		t.Fatalf("title = %q", rec.Title)
	}
	if want := []string{"[ ] 写周报", "[x] 跑步 ✅ 2024-05-05"}; !reflect.DeepEqual(rec.Todos, want) {
		t.Fatalf("todos = %#v, want %#v", rec.Todos, want)
	}
	if want := []string{"早上开会", "午饭吃面"}; !reflect.DeepEqual(rec.Logs, want) {
		t.Fatalf("logs = %#v, want %#v", rec.Logs, want)
	}
	if want := []string{"有点累", "但是开心"}; !reflect.DeepEqual(rec.Thoughts, want) {
		t.Fatalf("thoughts = %#v, want %#v", rec.Thoughts, want)
	}
	if rec.Attachments != "- https://example.com" {
		t.Fatalf("attachments = %q", rec.Attachments)
	}
	if rec.Feedback != "旧的反馈\n### 小结\n继续" {
		t.Fatalf("feedback = %q", rec.Feedback)
	}
	if !rec.HasFeedback() || rec.Empty() {
		t.Fatalf("unexpected flags: feedback=%v empty=%v", rec.HasFeedback(), rec.Empty())
	}
}

func TestParseIgnoresListsAfterAttachments(t *testing.T) {
	source := "## 记录\n- a\n## 附件\n- file.png\n## 想法\n- hidden\n"
	rec := Parse(mustDate(t, "2024-05-06"), []byte(source), DefaultVariants())
	if len(rec.Thoughts) != 0 {
		t.Fatalf("expected thoughts after attachments to be ignored, got %#v", rec.Thoughts)
	}
	if !strings.Contains(rec.Attachments, "file.png") || !strings.Contains(rec.Attachments, "hidden") {
		t.Fatalf("attachments = %q", rec.Attachments)
	}
}

func TestParseDefaultTitle(t *testing.T) {
	rec := Parse(mustDate(t, "2024-05-06"), []byte("## 记录\n- a\n"), DefaultVariants())
	if rec.Title != "日记 2024-05-06" {
		t.Fatalf("title = %q", rec.Title)
	}
}

func TestParseSectionHeadingIsNotTitle(t *testing.T) {
	rec := Parse(mustDate(t, "2024-05-06"), []byte("# 今日待办\n- [ ] 买菜\n"), DefaultVariants())
	if rec.Title != "日记 2024-05-06" {
		t.Fatalf("title = %q", rec.Title)
	}
	if len(rec.Todos) != 1 {
		t.Fatalf("todos = %#v", rec.Todos)
	}
}

func TestClassify(t *testing.T) {
	v := DefaultVariants()
	tests := []struct {
		heading string
		want    Section
	}{
		{"今日待办", SectionTodo},
		{"TODOs", SectionTodo},
		{"  Log ", SectionLog},
		{"心情和想法", SectionThoughts},
		{"附件  /  链接", SectionAttachments},
		{"AI说", SectionFeedback},
		{"待办清单", SectionNone},
		{"", SectionNone},
	}
	for _, tt := range tests {
		if got := v.Classify(tt.heading); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.heading, got, tt.want)
		}
	}
}

func TestReplaceFeedback(t *testing.T) {
	v := DefaultVariants()
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "append",
			source: "# t\n## 记录\n- a\n",
			want:   "# t\n## 记录\n- a\n\n## AI 说\n\nnew\n",
		},
		{
			name:   "replace trailing",
			source: "# t\n- a\n\n## AI 说\nold\n### 小结\nmore\n",
			want:   "# t\n- a\n\n## AI 说\n\nnew\n",
		},
		{
			name:   "replace middle",
			source: "- a\n\n## AI评价\nold\n## 记录\n- b\n",
			want:   "- a\n\n## AI 说\n\nnew\n\n## 记录\n- b\n",
		},
		{
			name:   "empty file",
			source: "",
			want:   "## AI 说\n\nnew\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(ReplaceFeedback([]byte(tt.source), " new \n", v))
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceFeedbackIsStable(t *testing.T) {
	v := DefaultVariants()
	source := []byte("# 周一\n## 记录\n- a\n## 附件\n- x.png\n")
	once := ReplaceFeedback(source, "第一版\n### 建议\n- 早睡", v)
	twice := ReplaceFeedback(once, "第一版\n### 建议\n- 早睡", v)
	if string(once) != string(twice) {
		t.Fatalf("second replace changed output:\n%q\n%q", once, twice)
	}
	rec := Parse(mustDate(t, "2024-05-06"), twice, v)
	if rec.Feedback != "第一版\n### 建议\n- 早睡" {
		t.Fatalf("feedback = %q", rec.Feedback)
	}
	if rec.Attachments != "- x.png" {
		t.Fatalf("attachments = %q", rec.Attachments)
	}
	if strings.Count(string(twice), "## "+FeedbackHeading) != 1 {
		t.Fatalf("expected one feedback heading:\n%s", twice)
	}
}

func TestStripFeedback(t *testing.T) {
	v := DefaultVariants()
	got, found := StripFeedback([]byte("# t\n- a\n\n## AI 说\nold\n## 记录\n- b\n"), v)
	if !found {
		t.Fatal("expected feedback to be found")
	}
	if string(got) != "# t\n- a\n" {
		t.Fatalf("got %q", got)
	}
	source := []byte("# t\n- a\n")
	got, found = StripFeedback(source, v)
	if found || string(got) != string(source) {
		t.Fatalf("expected untouched source, got %q found=%v", got, found)
	}
}

func writeDiary(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReaderSkipsDraftsAndMissing(t *testing.T) {
	dir := t.TempDir()
	writeDiary(t, dir, "2024-05-06x.md", "## 记录\n- draft\n")
	writeDiary(t, dir, "notes.md", "- not a diary\n")

	r := NewReader([]string{dir}, DefaultVariants())
	_, ok, err := r.Read(mustDate(t, "2024-05-06"))
	if err != nil || ok {
		t.Fatalf("expected missing diary, got ok=%v err=%v", ok, err)
	}
	dates, err := r.Dates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 0 {
		t.Fatalf("expected no dates, got %v", dates)
	}
}

func TestReaderSearchesDirectoriesInOrder(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "a")
	second := filepath.Join(root, "b")
	want := writeDiary(t, first, "2024-05-06.md", "## 记录\n- first\n")
	writeDiary(t, second, "2024-05-06.md", "## 记录\n- second\n")
	writeDiary(t, second, "2024-05-07.md", "## 记录\n- other\n")

	r := NewReader([]string{first, second, filepath.Join(root, "missing")}, DefaultVariants())
	rec, ok, err := r.Read(mustDate(t, "2024-05-06"))
	if err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}
	if rec.Path != want || rec.Logs[0] != "first" {
		t.Fatalf("unexpected record %+v", rec)
	}
	dates, err := r.Dates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 || !dates[0].Before(dates[1]) {
		t.Fatalf("dates = %v", dates)
	}
}

func TestReaderWriteFeedbackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeDiary(t, dir, "2024-05-06.md", "## 记录\n- a\n")
	r := NewReader([]string{dir}, DefaultVariants())
	date := mustDate(t, "2024-05-06")

	if _, err := r.WriteFeedback(date, "第一次"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.WriteFeedback(date, "第二次"); err != nil {
		t.Fatal(err)
	}
	rec, ok, err := r.Read(date)
	if err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}
	if rec.Feedback != "第二次" {
		t.Fatalf("feedback = %q", rec.Feedback)
	}
	if _, err := r.WriteFeedback(mustDate(t, "2024-05-07"), "x"); err == nil {
		t.Fatal("expected error for missing diary")
	}
}

func TestReaderClearFeedback(t *testing.T) {
	dir := t.TempDir()
	withFeedback := writeDiary(t, dir, "2024-05-06.md", "## 记录\n- a\n\n## AI 说\nold\n")
	writeDiary(t, dir, "2024-05-07.md", "## 记录\n- b\n")
	backup := filepath.Join(t.TempDir(), "backup")

	r := NewReader([]string{dir}, DefaultVariants())
	result, err := r.ClearFeedback(backup)
	if err != nil {
		t.Fatal(err)
	}
	if result.Scanned != 2 || result.Cleared != 1 {
		t.Fatalf("result = %+v", result)
	}
	data, err := os.ReadFile(withFeedback)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "## 记录\n- a\n" {
		t.Fatalf("stripped content = %q", data)
	}
	saved, err := os.ReadFile(filepath.Join(backup, "2024-05-06.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(saved), "old") {
		t.Fatalf("backup lost feedback: %q", saved)
	}
}

func TestReaderClearFeedbackSeparatesDirectories(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "My Diary")
	second := filepath.Join(root, "work")
	writeDiary(t, first, "2024-05-06.md", "## 记录\n- a\n")
	writeDiary(t, second, "2024-05-07.md", "## 记录\n- b\n\n## AI说\nold\n")
	backup := filepath.Join(t.TempDir(), "backup")

	result, err := NewReader([]string{first, second}, DefaultVariants()).ClearFeedback(backup)
	if err != nil {
		t.Fatal(err)
	}
	if result.Scanned != 2 || result.Cleared != 1 {
		t.Fatalf("result = %+v", result)
	}
	for _, rel := range []string{"0_my_diary/2024-05-06.md", "1_work/2024-05-07.md"} {
		if _, err := os.Stat(filepath.Join(backup, rel)); err != nil {
			t.Fatalf("missing backup %s: %v", rel, err)
		}
	}
}

func TestOpenTodos(t *testing.T) {
	records := []Record{
		{
			Date: mustDate(t, "2024-05-06"),
			Todos: []string{
				"[ ] 写周报",
				"[x] 跑步 ✅ 2024-05-05",
				"[x] 旧事 ✅ 2024-05-01",
				"[x] 没有日期",
				"[ ]",
				"普通事项",
			},
		},
		{Date: mustDate(t, "2024-05-07"), Todos: []string{"[X] 早完成 ✅ 2024-04-01"}},
	}
	groups := OpenTodos(records, mustDate(t, "2024-05-12"))
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %+v", groups)
	}
	want := []string{"[ ] 写周报", "[x] 跑步 ✅ 2024-05-05", "普通事项"}
	if !reflect.DeepEqual(groups[0].Items, want) {
		t.Fatalf("items = %#v, want %#v", groups[0].Items, want)
	}
}

func TestRecordFormat(t *testing.T) {
	rec := Record{
		Date:        mustDate(t, "2024-05-06"),
		Title:       "周一",
		Logs:        []string{"开会"},
		Attachments: "secret.png",
		Feedback:    "old",
	}
	out := rec.Format()
	for _, want := range []string{"# 2024年05月06日 周一", "## 待办事项\n无", "## 记录\n- 开会", "## 想法\n无"} {
		if !strings.Contains(out, want) {
			t.Fatalf("format missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret.png") || strings.Contains(out, "old") {
		t.Fatalf("format leaked attachments or feedback:\n%s", out)
	}
}
