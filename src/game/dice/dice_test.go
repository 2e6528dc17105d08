package dice

import (
	"errors"
	"math/rand"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Expression
		wantErr bool
	}{
		{
			name:  "simple d20",
			input: "d20",
			want:  Expression{Count: 1, Faces: 20},
		},
		{
			name:  "count and modifier",
			input: "2d6+3",
			want:  Expression{Count: 2, Faces: 6, Modifier: 3},
		},
		{
			name:  "negative modifier",
			input: "4d8-2",
			want:  Expression{Count: 4, Faces: 8, Modifier: -2},
		},
		{
			name:  "uppercase and whitespace",
			input: " 1D12 ",
			want:  Expression{Count: 1, Faces: 12},
		},
		{
			name:    "zero count",
			input:   "0d6",
			wantErr: true,
		},
		{
			name:    "one face",
			input:   "d1",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "abc",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "negative count",
			input:   "-2d6",
			wantErr: true,
		},
		{
			name:    "missing modifier value",
			input:   "2d6+",
			wantErr: true,
		},
		{
			name:    "count above table limit",
			input:   "101d6",
			wantErr: true,
		},
		{
			name:    "faces above table limit",
			input:   "2d1001",
			wantErr: true,
		},
		{
			name:  "count and faces at the limits",
			input: "100d1000",
			want:  Expression{Count: 100, Faces: 1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExpression) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidExpression", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRollBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	expr := Expression{Count: 5, Faces: 6, Modifier: 3}

	for i := 0; i < 1000; i++ {
		result := expr.Roll(rng)
		if len(result.Rolls) != expr.Count {
			t.Fatalf("got %d rolls, want %d", len(result.Rolls), expr.Count)
		}
		sum := expr.Modifier
		for _, roll := range result.Rolls {
			if roll < 1 || roll > expr.Faces {
				t.Fatalf("roll %d out of [1, %d]", roll, expr.Faces)
			}
			sum += roll
		}
		if result.Total != sum {
			t.Fatalf("total %d does not match sum %d", result.Total, sum)
		}
	}
}

// A count big enough to overflow the roll slice allocation must be caught
// at parse time; the process survives any input typed after /roll.
func TestRollRejectsHugeCounts(t *testing.T) {
	for _, input := range []string{
		"9223372036854775807d6",
		"99999999999999999999d6",
		"1000000000d6",
	} {
		_, err := Roll(input)
		if !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("Roll(%q) error = %v, want ErrInvalidExpression", input, err)
		}
	}
}

func TestResultString(t *testing.T) {
	result := Result{
		Expression: Expression{Count: 2, Faces: 6, Modifier: 3},
		Rolls:      []int{4, 2},
		Total:      9,
	}
	want := "2d6+3: [4, 2] +3 = 9"
	if got := result.String(); got != want {
		t.Errorf("Result.String() = %q, want %q", got, want)
	}

	noMod := Result{
		Expression: Expression{Count: 1, Faces: 20},
		Rolls:      []int{17},
		Total:      17,
	}
	want = "1d20: [17] = 17"
	if got := noMod.String(); got != want {
		t.Errorf("Result.String() = %q, want %q", got, want)
	}
}
