package projector

import "testing"

func TestCentsFromPayload(t *testing.T) {
	cents := int64(1050)
	amount := 10.5

	tests := []struct {
		name   string
		cents  *int64
		amount *float64
		want   *int64
	}{
		{"explicit cents wins", &cents, &amount, &cents},
		{"falls back to rounded amount", nil, &amount, ptr(int64(1050))},
		{"rounds to nearest cent", nil, ptr(9.99), ptr(int64(999))},
		{"neither present", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := centsFromPayload(tt.cents, tt.amount)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("centsFromPayload() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Fatalf("centsFromPayload() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
