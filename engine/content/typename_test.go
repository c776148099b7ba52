package content

import "testing"

func TestNormalizeTypeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Ember.Content.Int32Reader", "Ember.Content.Int32Reader"},
		{
			"Ember.Content.Int32Reader, Ember.Pipeline, Version=4.0.0.0, Culture=neutral, PublicKeyToken=null",
			"Ember.Content.Int32Reader",
		},
		{
			"Ember.Framework.Content.StringReader, Ember.Framework",
			"Ember.Content.StringReader",
		},
		{
			"Ember.Content.ListReader`1[[Ember.Content.Int32Reader, Ember.Pipeline]]",
			"Ember.Content.ListReader`1[[Ember.Content.Int32Reader]]",
		},
		{
			"Ember.Content.DictionaryReader`2[[Ember.Content.StringReader, A, Version=1.0],[Ember.Content.Int32Reader, B]], C, Version=2.0",
			"Ember.Content.DictionaryReader`2[[Ember.Content.StringReader],[Ember.Content.Int32Reader]]",
		},
		{
			// Nested generics qualified at every level.
			"Ember.Content.ListReader`1[[Ember.Framework.Content.ListReader`1[[Ember.Content.SingleReader, X]], Y]]",
			"Ember.Content.ListReader`1[[Ember.Content.ListReader`1[[Ember.Content.SingleReader]]]]",
		},
	}
	for _, tc := range cases {
		got, err := NormalizeTypeName(tc.in)
		if err != nil {
			t.Errorf("NormalizeTypeName(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeTypeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTypeNameErrors(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"Ember.Content.ListReader`1",
		"Ember.Content.ListReader`1[[Unterminated",
		"Ember.Content.ListReader`x[[A]]",
	}
	for _, in := range cases {
		if _, err := NormalizeTypeName(in); err == nil {
			t.Errorf("NormalizeTypeName(%q): expected error", in)
		}
	}
}

func TestParseTypeNameGenericArgs(t *testing.T) {
	t.Parallel()

	parsed, err := ParseTypeName("Ember.Content.DictionaryReader`2[[K, A],[V, B]]")
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.GenericArgs) != 2 {
		t.Fatalf("got %d generic args, want 2", len(parsed.GenericArgs))
	}
	if parsed.GenericArgs[0].Name != "K" || parsed.GenericArgs[1].Name != "V" {
		t.Errorf("generic args = %q, %q", parsed.GenericArgs[0].Name, parsed.GenericArgs[1].Name)
	}
}
