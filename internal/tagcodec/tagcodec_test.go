package tagcodec

import (
	"errors"
	"slices"
	"testing"

	"github.com/factor8/TagDeck/internal/shared"
)

func TestDecode(t *testing.T) {
	tc := []struct {
		name     string
		raw      string
		wantText string
		wantTags []string
	}{
		{name: "empty", raw: "", wantText: "", wantTags: nil},
		{name: "plain comment", raw: "great intro", wantText: "great intro", wantTags: nil},
		{name: "comment and tags", raw: "club banger && house; peak-time", wantText: "club banger", wantTags: []string{"house", "peak-time"}},
		{name: "blank comment", raw: " && house; techno", wantText: "", wantTags: []string{"house", "techno"}},
		{name: "trims and drops empties", raw: "x &&  a ;; ;b ", wantText: "x", wantTags: []string{"a", "b"}},
		{name: "splits on first delimiter", raw: "a && b && c", wantText: "a", wantTags: []string{"b && c"}},
		{name: "delimiter needs spaces", raw: "rock&&roll", wantText: "rock&&roll", wantTags: nil},
		{name: "delimiter with no tags", raw: "note && ", wantText: "note", wantTags: nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.raw)
			if got.Text != tt.wantText {
				t.Errorf("Decode(%q).Text = %q, want %q", tt.raw, got.Text, tt.wantText)
			}
			if !slices.Equal(got.Tags, tt.wantTags) {
				t.Errorf("Decode(%q).Tags = %v, want %v", tt.raw, got.Tags, tt.wantTags)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tc := []struct {
		name string
		text string
		tags []string
		want string
	}{
		{name: "no tags", text: "great intro", tags: nil, want: "great intro"},
		{name: "no tags no text", text: "", tags: nil, want: ""},
		{name: "tags", text: "club banger", tags: []string{"house", "peak-time"}, want: "club banger && house; peak-time"},
		{name: "blank comment keeps delimiter", text: "", tags: []string{"house"}, want: " && house"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.text, tt.tags); got != tt.want {
				t.Errorf("Encode(%q, %v) = %q, want %q", tt.text, tt.tags, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tc := []Comment{
		{Text: "", Tags: []string{"a"}},
		{Text: "warm-up", Tags: []string{"Deep House", "deep house", "Vocal"}},
		{Text: "just a note"},
		{Text: "ünïcode ✓", Tags: []string{"Tëchno"}},
	}

	for _, c := range tc {
		t.Run(c.Encode(), func(t *testing.T) {
			got := Decode(c.Encode())
			if got.Text != c.Text || !slices.Equal(got.Tags, c.Tags) {
				t.Errorf("Decode(Encode(%+v)) = %+v", c, got)
			}
			if again := got.Encode(); again != c.Encode() {
				t.Errorf("re-encode changed value: %q != %q", again, c.Encode())
			}
		})
	}
}

func TestMembership(t *testing.T) {
	c := Decode("x && House; Peak-Time")

	t.Run("Has ignores case", func(t *testing.T) {
		if !c.Has("house") || !c.Has("HOUSE") || !c.Has(" house ") {
			t.Error("expected case-insensitive match")
		}
		if c.Has("techno") {
			t.Error("unexpected match for techno")
		}
	})

	t.Run("Add keeps first casing", func(t *testing.T) {
		cp := Comment{Text: c.Text, Tags: slices.Clone(c.Tags)}
		if cp.Add("HOUSE") {
			t.Error("adding existing tag should be a no-op")
		}
		if !cp.Add("Techno") {
			t.Error("adding new tag should change the comment")
		}
		if got := cp.Encode(); got != "x && House; Peak-Time; Techno" {
			t.Errorf("unexpected encoding %q", got)
		}
	})

	t.Run("Add rejects blank", func(t *testing.T) {
		cp := Comment{}
		if cp.Add("   ") {
			t.Error("blank tag should not be added")
		}
	})

	t.Run("Remove ignores case", func(t *testing.T) {
		cp := Decode("x && house; HOUSE; techno")
		if !cp.Remove("House") {
			t.Fatal("expected remove to change the comment")
		}
		if !slices.Equal(cp.Tags, []string{"techno"}) {
			t.Errorf("expected only techno to remain, got %v", cp.Tags)
		}
	})
}

func TestRemoveTagScenario(t *testing.T) {
	raw := "club banger && house; peak-time"

	raw, changed := RemoveTag(raw, "House")
	if !changed || raw != "club banger && peak-time" {
		t.Fatalf("after removing House got %q (changed=%v)", raw, changed)
	}

	raw, changed = RemoveTag(raw, "peak-time")
	if !changed || raw != "club banger" {
		t.Fatalf("after removing peak-time got %q (changed=%v)", raw, changed)
	}

	if _, changed = RemoveTag(raw, "peak-time"); changed {
		t.Error("removing an absent tag should not report a change")
	}
}

func TestAddTag(t *testing.T) {
	tc := []struct {
		name    string
		raw     string
		tag     string
		want    string
		changed bool
	}{
		{name: "to empty field", raw: "", tag: "house", want: " && house", changed: true},
		{name: "to plain comment", raw: "nice", tag: "house", want: "nice && house", changed: true},
		{name: "already present", raw: "nice && House", tag: "house", want: "nice && House", changed: false},
		{name: "normalizes spacing", raw: "nice &&  a ;b", tag: "c", want: "nice && a; b; c", changed: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := AddTag(tt.raw, tt.tag)
			if got != tt.want || changed != tt.changed {
				t.Errorf("AddTag(%q, %q) = %q, %v; want %q, %v", tt.raw, tt.tag, got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestRenameTag(t *testing.T) {
	tc := []struct {
		name    string
		raw     string
		from    string
		to      string
		want    string
		changed bool
	}{
		{name: "in place", raw: "n && a; house; b", from: "House", to: "Deep House", want: "n && a; Deep House; b", changed: true},
		{name: "merge into existing", raw: "n && house; techno", from: "house", to: "Techno", want: "n && techno", changed: true},
		{name: "recase", raw: "n && house", from: "house", to: "House", want: "n && House", changed: true},
		{name: "absent", raw: "n && techno", from: "house", to: "x", want: "n && techno", changed: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := RenameTag(tt.raw, tt.from, tt.to)
			if got != tt.want || changed != tt.changed {
				t.Errorf("RenameTag(%q, %q, %q) = %q, %v; want %q, %v", tt.raw, tt.from, tt.to, got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := ValidateText("fine comment"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"this && that", "keep it &&", "trailing && "} {
		if err := ValidateText(bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("ValidateText(%q) = %v, want ErrInvalidInput", bad, err)
		}
	}
	for _, ok := range []string{"", "a&&b", "&& leading", "rock&&", "x & "} {
		if err := ValidateText(ok); err != nil {
			t.Errorf("ValidateText(%q) = %v, want nil", ok, err)
		}
		if got := Decode(Encode(ok, []string{"house"})); got.Text != ok {
			t.Errorf("text %q did not survive encoding, got %q", ok, got.Text)
		}
	}

	for _, bad := range []string{"", "  ", "a;b", "a && b", "a&&b"} {
		if err := ValidateTag(bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("ValidateTag(%q) = %v, want ErrInvalidInput", bad, err)
		}
	}
	if err := ValidateTag("peak-time"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
