package facematch

import (
	"context"
	"testing"
)

func TestValidator(t *testing.T) {
	passes := DefaultCascade()
	png := gradientPNG(t, 80, 60)

	tests := []struct {
		name       string
		data       []byte
		byPass     map[int][]BoundingBox
		wantState  ValidationState
		wantReason string
		wantFaces  int
	}{
		{
			name:       "undecodable",
			data:       []byte{0x00, 0x01, 0x02},
			wantState:  DecodeFailed,
			wantReason: ReasonInvalidImage,
		},
		{
			name:       "empty",
			data:       nil,
			wantState:  DecodeFailed,
			wantReason: ReasonInvalidImage,
		},
		{
			name:       "no face at any pass",
			data:       png,
			wantState:  NoFaceFound,
			wantReason: ReasonNoFaces,
		},
		{
			name:       "face on lenient pass",
			data:       png,
			byPass:     map[int][]BoundingBox{3: {{X: 1, Y: 1, W: 15, H: 15}, {X: 40, Y: 20, W: 16, H: 16}}},
			wantState:  Validated,
			wantReason: ReasonValid,
			wantFaces:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(NewDetector(newFakeClassifier(passes, tt.byPass), passes))
			res := v.Validate(tt.data)
			if res.State != tt.wantState {
				t.Errorf("state = %s, want %s", res.State, tt.wantState)
			}
			if res.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", res.Reason, tt.wantReason)
			}
			if len(res.Faces) != tt.wantFaces {
				t.Errorf("faces = %d, want %d", len(res.Faces), tt.wantFaces)
			}
			if !res.State.Terminal() {
				t.Errorf("state %s is not terminal", res.State)
			}
			if res.OK() != (tt.wantState == Validated) {
				t.Errorf("OK() = %v", res.OK())
			}
		})
	}
}

// An image with no face is rejected by the validator and yields no histogram.
func TestNoFaceScenario(t *testing.T) {
	passes := DefaultCascade()
	c := newFakeClassifier(passes, nil)
	d := NewDetector(c, passes)
	data := gradientPNG(t, 64, 64)

	if res := NewValidator(d).Validate(data); res.State != NoFaceFound {
		t.Fatalf("state = %s, want %s", res.State, NoFaceFound)
	}
	enc, err := NewHistogramEncoder(d, false).Encode(context.Background(), decodeForTest(t, data))
	if err != nil || enc != nil {
		t.Fatalf("Encode = %v, %v; want nil, nil", enc, err)
	}
	if len(c.calls) != 2*len(passes) {
		t.Errorf("classifier calls = %d, want %d", len(c.calls), 2*len(passes))
	}
}
