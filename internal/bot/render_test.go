package bot

import "testing"

const clozeText = "Go was released in {{c2::2009}} by {{c1::Google}} and {{c1::Rob Pike}}."

func TestRenderClozeFront(t *testing.T) {
	got := RenderClozeFront(clozeText, 1)
	want := "Go was released in 2009 by [...] and [...]."
	if got != want {
		t.Fatalf("front(1) = %q, want %q", got, want)
	}

	got = RenderClozeFront(clozeText, 2)
	want = "Go was released in [...] by Google and Rob Pike."
	if got != want {
		t.Fatalf("front(2) = %q, want %q", got, want)
	}
}

func TestRenderClozeBack(t *testing.T) {
	got := RenderClozeBack(clozeText, 1)
	want := "Go was released in 2009 by [Google] and [Rob Pike]."
	if got != want {
		t.Fatalf("back(1) = %q, want %q", got, want)
	}
}

func TestClozeIndexes(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{clozeText, []int{1, 2}},
		{"no spans here", nil},
		{"{{c3::x}} {{c3::y}}", []int{3}},
		{"{{c1::a}} plain {{c2::b}} {{c10::c}}", []int{1, 2, 10}},
	}
	for _, tt := range tests {
		got := ClozeIndexes(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("ClozeIndexes(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ClozeIndexes(%q) = %v, want %v", tt.text, got, tt.want)
				break
			}
		}
	}
}

func TestParseDeckCallback(t *testing.T) {
	prefix, id, ok := ParseDeckCallback("study_deck:42")
	if !ok || prefix != "study_deck" || id != 42 {
		t.Fatalf("parsed %q/%d/%v", prefix, id, ok)
	}

	if _, _, ok := ParseDeckCallback("no-separator"); ok {
		t.Fatal("accepted data without a separator")
	}
	if _, _, ok := ParseDeckCallback("study_deck:notanumber"); ok {
		t.Fatal("accepted non-numeric deck id")
	}
}
