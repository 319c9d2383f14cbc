package commandqueue

import "testing"

func TestCommandTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusQueued, false},
		{StatusDelivered, false},
		{StatusAcked, true},
		{StatusFailed, true},
		{StatusExpired, true},
	}
	for _, tt := range tests {
		c := Command{Status: tt.status}
		if got := c.Terminal(); got != tt.want {
			t.Errorf("Command{Status: %q}.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
