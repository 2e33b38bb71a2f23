package cache

import (
	"errors"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		baseAddress string
		uri         string
		want        string
	}{
		{
			name:        "no identifier",
			baseAddress: "https://api.test",
			uri:         "/widgets/1",
			want:        "https://api.test/widgets/1",
		},
		{
			name:        "with identifier",
			identifier:  "order-42",
			baseAddress: "https://api.test",
			uri:         "/orders",
			want:        "order-42https://api.test/orders",
		},
		{
			name: "all empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Key(tt.identifier, tt.baseAddress, tt.uri)
			if got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestKey_Determinism ensures same input always produces same key
func TestKey_Determinism(t *testing.T) {
	first := Key("id", "https://api.test", "/widgets/1")
	for i := 0; i < 10; i++ {
		if got := Key("id", "https://api.test", "/widgets/1"); got != first {
			t.Errorf("Key() = %q, want %q (not deterministic)", got, first)
		}
	}
}

func TestKey_DiffersOnSingleInput(t *testing.T) {
	base := Key("id", "https://api.test", "/widgets/1")

	variants := map[string]string{
		"identifier":   Key("other", "https://api.test", "/widgets/1"),
		"base address": Key("id", "https://api.other", "/widgets/1"),
		"uri":          Key("id", "https://api.test", "/widgets/2"),
	}

	for name, key := range variants {
		if key == base {
			t.Errorf("changing %s did not change the key (%q)", name, key)
		}
	}
}

func TestIdentifierFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr bool
	}{
		{
			name:    "nil headers",
			headers: nil,
			want:    "",
		},
		{
			name:    "identifier present",
			headers: map[string]string{IdentifierHeader: "order-42"},
			want:    "order-42",
		},
		{
			name:    "empty header set",
			headers: map[string]string{},
			wantErr: true,
		},
		{
			name:    "identifier missing",
			headers: map[string]string{"Authorization": "Bearer x"},
			wantErr: true,
		},
		{
			name:    "identifier empty",
			headers: map[string]string{IdentifierHeader: ""},
			wantErr: true,
		},
		{
			name:    "lookup is case-sensitive",
			headers: map[string]string{"X-Resource-Identifier": "order-42"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IdentifierFromHeaders(tt.headers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IdentifierFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				if !errors.Is(err, ErrMissingIdentifier) {
					t.Errorf("error %v does not match ErrMissingIdentifier", err)
				}
				var headerErr *MissingHeaderError
				if !errors.As(err, &headerErr) {
					t.Fatalf("error %T is not *MissingHeaderError", err)
				}
				if headerErr.Header != IdentifierHeader {
					t.Errorf("Header = %q, want %q", headerErr.Header, IdentifierHeader)
				}
				return
			}

			if got != tt.want {
				t.Errorf("IdentifierFromHeaders() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentifierFromHeaders_DistinctReasons(t *testing.T) {
	_, missing := IdentifierFromHeaders(map[string]string{})
	_, empty := IdentifierFromHeaders(map[string]string{IdentifierHeader: ""})

	if missing.Error() == empty.Error() {
		t.Errorf("missing and empty identifier should report different reasons, both got %q", missing)
	}
}
