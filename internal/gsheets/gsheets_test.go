package gsheets

import "testing"

func TestFindRow(t *testing.T) {
	c := &Client{sheetName: "Revenus"}
	rows := [][]any{
		{"user", "year"},
		{"u1", "2024"},
		{"u1", 2025},
		{"u2", "2025"},
		{"short"},
	}

	tests := []struct {
		name   string
		userID string
		year   int
		want   int
	}{
		{"existing string year", "u1", 2024, 2},
		{"existing numeric year", "u1", 2025, 3},
		{"other user", "u2", 2025, 4},
		{"unknown user", "u3", 2025, 0},
		{"unknown year", "u1", 2023, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.findRow(rows, tt.userID, tt.year); got != tt.want {
				t.Errorf("findRow() = %d, want %d", got, tt.want)
			}
		})
	}
}
