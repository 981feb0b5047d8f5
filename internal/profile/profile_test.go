package profile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "user_profile.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Facts()) != 0 || p.Text() != EmptyText || p.Length() != 0 {
		t.Fatalf("unexpected profile: facts=%v text=%q", p.Facts(), p.Text())
	}
}

func TestLoadRejectsNonArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_profile.json")
	if err := os.WriteFile(path, []byte(`{"facts": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "user_profile.json")
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p.Apply(Updates{Add: []string{"喜欢跑步", "住在<杭州>"}})
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "住在<杭州>") {
		t.Fatalf("expected unescaped text, got %s", data)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"喜欢跑步", "住在<杭州>"}; !reflect.DeepEqual(reloaded.Facts(), want) {
		t.Fatalf("facts = %#v, want %#v", reloaded.Facts(), want)
	}
	if reloaded.Text() != "- 喜欢跑步\n- 住在<杭州>" {
		t.Fatalf("text = %q", reloaded.Text())
	}
	if reloaded.Length() != 10 {
		t.Fatalf("length = %d", reloaded.Length())
	}
}

func TestApply(t *testing.T) {
	p := &Profile{facts: []string{"2024-05 在学吉他", "养了一只猫", "养了一只狗", "每周跑步三次"}}
	changes := p.Apply(Updates{
		Add:    []string{"养了一只猫", " 喜欢咖啡 ", ""},
		Remove: []string{"吉他", "养了一只", "不存在"},
		Update: []Replacement{
			{Old: "每周跑步三次", New: "每周跑步四次"},
			{Old: "一只狗", New: "两只狗"},
			{Old: "", New: "忽略"},
		},
	})
	want := []string{"养了一只猫", "养了两只狗", "每周跑步四次", "喜欢咖啡"}
	if !reflect.DeepEqual(p.Facts(), want) {
		t.Fatalf("facts = %#v, want %#v", p.Facts(), want)
	}
	if changes.Added != 1 || changes.Removed != 1 || changes.Updated != 2 {
		t.Fatalf("changes = %+v", changes)
	}
	if want := []string{"养了一只", "不存在"}; !reflect.DeepEqual(changes.Unmatched, want) {
		t.Fatalf("unmatched = %#v, want %#v", changes.Unmatched, want)
	}
	if !changes.Any() {
		t.Fatal("expected Any")
	}
}

func TestExtract(t *testing.T) {
	content := "今天很充实。\n\n```json\n{\n  \"memory_updates\": {\n    \"add\": [\"2024-05-15 开始学游泳\"],\n    \"update\": [{\"old\": \"a\", \"new\": \"b\"}]\n  }\n}\n```\n"
	cleaned, updates, err := Extract(content)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if cleaned != "今天很充实。" {
		t.Fatalf("cleaned = %q", cleaned)
	}
	if updates == nil || len(updates.Add) != 1 || updates.Add[0] != "2024-05-15 开始学游泳" || updates.Update[0].New != "b" {
		t.Fatalf("updates = %+v", updates)
	}
}

func TestExtractWithoutBlock(t *testing.T) {
	content := "没有记忆更新\n```json\n{\"other\": 1}\n```"
	cleaned, updates, err := Extract(content)
	if err != nil || updates != nil || cleaned != content {
		t.Fatalf("cleaned=%q updates=%+v err=%v", cleaned, updates, err)
	}
}

func TestExtractRejectsMalformedBlock(t *testing.T) {
	tests := map[string]string{
		"invalid json": "反馈\n```json\n{\"memory_updates\": {\"add\": [}\n```",
		"wrong type":   "反馈\n```json\n{\"memory_updates\": {\"add\": \"一条\"}}\n```",
		"missing new":  "反馈\n```json\n{\"memory_updates\": {\"update\": [{\"old\": \"x\"}]}}\n```",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			cleaned, updates, err := Extract(content)
			if err == nil {
				t.Fatal("expected error")
			}
			if updates != nil || cleaned != content {
				t.Fatalf("expected untouched content, got %q", cleaned)
			}
		})
	}
}
