package slug

import "testing"

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Animal food":              "animal-food",
		"  Clothes & accessories ": "clothes-accessories",
		"Crème Brûlée":             "creme-brulee",
		"Café--Ünïcode__2024":      "cafe-unicode-2024",
		"ขนมแมว":                   "ขนมแมว",
		"!!!":                      "",
		"":                         "",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("cat-snacks") {
		t.Fatalf("expected cat-snacks to be valid")
	}
	if Valid("Cat Snacks") || Valid("") || Valid("-cat") {
		t.Fatalf("expected non-canonical slugs to be invalid")
	}
}
