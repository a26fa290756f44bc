package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestPreprocess_ShapeAndRange(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"small square", createInMemoryImage(10, 10, color.White)},
		{"wide", createInMemoryImage(300, 40, color.Black)},
		{"tall gray", image.NewGray(image.Rect(0, 0, 12, 200))},
		{"single pixel", createInMemoryImage(1, 1, color.White)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := Preprocess(tt.img)
			if err != nil {
				t.Fatalf("Preprocess failed: %v", err)
			}
			want := []int{1, GlyphSize, GlyphSize, 1}
			for i := range want {
				if tensor.Shape[i] != want[i] {
					t.Fatalf("Shape = %v, want %v", tensor.Shape, want)
				}
			}
			if len(tensor.Data) != tensor.Len() {
				t.Errorf("len(Data) = %d, want %d", len(tensor.Data), tensor.Len())
			}
			for i, v := range tensor.Data {
				if v < 0 || v > 1 {
					t.Fatalf("Data[%d] = %v out of [0,1]", i, v)
				}
			}
		})
	}
}

func TestPreprocess_Values(t *testing.T) {
	white, err := Preprocess(createInMemoryImage(30, 30, color.White))
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	black, err := Preprocess(createInMemoryImage(30, 30, color.Black))
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	for i := range white.Data {
		if math.Abs(float64(white.Data[i])-1) > 1.5/255 {
			t.Fatalf("white Data[%d] = %v, want 1", i, white.Data[i])
		}
		if black.Data[i] > 1.5/255 {
			t.Fatalf("black Data[%d] = %v, want 0", i, black.Data[i])
		}
	}
}

func TestPreprocess_Errors(t *testing.T) {
	if _, err := Preprocess(nil); err == nil {
		t.Error("Expected error for nil image")
	}
	if _, err := Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestTensor_Instance(t *testing.T) {
	img := createStrokeImage(GlyphSize, GlyphSize, 0, 1, color.Black)
	tensor, err := Preprocess(img)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	inst := tensor.Instance()
	if len(inst) != GlyphSize || len(inst[0]) != GlyphSize || len(inst[0][0]) != 1 {
		t.Fatalf("Instance shape = %dx%dx%d", len(inst), len(inst[0]), len(inst[0][0]))
	}
	if inst[0][5][0] != tensor.Data[5] {
		t.Errorf("inst[0][5] = %v, want %v", inst[0][5][0], tensor.Data[5])
	}
	if inst[100][7][0] != tensor.Data[100*GlyphSize+7] {
		t.Errorf("inst[100][7] does not match row-major data")
	}
}
