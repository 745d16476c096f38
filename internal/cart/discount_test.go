package cart

import "testing"

func TestStaticDiscountsResolve(t *testing.T) {
	discounts := DefaultDiscounts()

	tests := []struct {
		code       string
		wantOK     bool
		wantCode   string
		percentage float64
	}{
		{"WELCOME10", true, "WELCOME10", 10},
		{"save20", true, "SAVE20", 20},
		{"  FirstOrder  ", true, "FIRSTORDER", 15},
		{"STUDENT10", true, "STUDENT10", 10},
		{"EXPIRED99", false, "", 0},
		{"", false, "", 0},
	}

	for _, tt := range tests {
		discount, ok := discounts.Resolve(tt.code)
		if ok != tt.wantOK {
			t.Fatalf("Resolve(%q): expected ok=%v, got %v", tt.code, tt.wantOK, ok)
		}
		if !ok {
			continue
		}
		if discount.Code != tt.wantCode || discount.Percentage != tt.percentage {
			t.Fatalf("Resolve(%q): expected %s %v%%, got %+v", tt.code, tt.wantCode, tt.percentage, discount)
		}
	}
}
