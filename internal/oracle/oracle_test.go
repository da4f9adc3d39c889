package oracle

import "testing"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Verdict
		wantErr bool
	}{
		{
			name: "bare json",
			in:   `{"contradictory": true, "explanation": "the pulse counts disagree"}`,
			want: Verdict{Contradictory: true, Explanation: "the pulse counts disagree"},
		},
		{
			name: "fenced json",
			in:   "```json\n{\"contradictory\": false, \"explanation\": \"both describe sector seven\"}\n```",
			want: Verdict{Contradictory: false, Explanation: "both describe sector seven"},
		},
		{
			name: "fenced without language tag",
			in:   "```\n{\"contradictory\": true, \"explanation\": \"x\"}\n```",
			want: Verdict{Contradictory: true, Explanation: "x"},
		},
		{
			name:    "prose instead of json",
			in:      "Yes, those statements contradict each other.",
			wantErr: true,
		},
		{
			name:    "empty",
			in:      "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseVerdict(%q) = %+v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("parseVerdict(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrNone(t *testing.T) {
	if orNone("  ") != "(none collected)" {
		t.Error("blank clues should read as none collected")
	}
	if orNone("five pulses") != "five pulses" {
		t.Error("clues passed through unchanged")
	}
}
