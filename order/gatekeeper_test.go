package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orderagent/menu"
)

func TestGatekeep(t *testing.T) {
	c := menu.Default()

	tests := []struct {
		name    string
		cart    string
		closing bool
		want    Decision
	}{
		{
			name: "empty and still ordering",
			want: Decision{State: StateCollecting},
		},
		{
			name:    "empty and closing",
			closing: true,
			want:    Decision{State: StateCollecting, Empty: true},
		},
		{
			name:    "incomplete latte vetoed",
			cart:    "1x Latte",
			closing: true,
			want: Decision{
				State:  StateCollecting,
				Vetoed: true,
				Missing: []Missing{
					{LineIndex: 0, Field: FieldSize},
					{LineIndex: 0, Field: FieldTemperature},
					{LineIndex: 0, Field: FieldMilk},
				},
			},
		},
		{
			name: "complete but not closing",
			cart: "1x Latte (Small) (Hot) (Whole milk)",
			want: Decision{Complete: true, State: StateReadyToClose},
		},
		{
			name:    "complete and closing",
			cart:    "1x Latte (Small) (Hot) (Whole milk), 1x Banana Bread",
			closing: true,
			want:    Decision{Complete: true, State: StateClosed},
		},
		{
			name:    "second line incomplete",
			cart:    "1x Latte (Small) (Hot) (Whole milk), 1x Cold Brew",
			closing: true,
			want: Decision{
				State:   StateCollecting,
				Vetoed:  true,
				Missing: []Missing{{LineIndex: 1, Field: FieldSize}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gatekeep(c, MustParseCart(c, tt.cart), tt.closing)
			assert.Equal(t, tt.want, got)
		})
	}
}
