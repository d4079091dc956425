package identity

import "testing"

func TestThumbnailKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Alice Novak", "alice_novak"},
		{"Jiří Menzel", "jiri_menzel"},
		{"bob", "bob"},
		{"Élodie  Durand", "elodie__durand"},
	}

	for _, tt := range tests {
		if got := ThumbnailKey(tt.name); got != tt.want {
			t.Errorf("ThumbnailKey(%q): expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
