package ocr

import (
	"image"
	"reflect"
	"testing"
)

func TestExtractSpacedTokens(t *testing.T) {
	got := ExtractNumberTokens("7 11 23 45", nil)
	want := []int{7, 11, 23, 45}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestExtractAmbiguousTriple(t *testing.T) {
	// Both splits of 711 are valid; 1-digit-then-2-digit must win.
	got := ExtractNumberTokens("711", nil)
	want := []int{7, 11}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestExtractTripleSingleValidSplit(t *testing.T) {
	// 901: 9+01 is invalid (01 is not a two-digit loto number), 90+1 works.
	got := ExtractNumberTokens("901", nil)
	want := []int{1, 90}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestExtractLongRunGreedy(t *testing.T) {
	// 45127 -> 45, 12, 7.
	got := ExtractNumberTokens("45127", nil)
	want := []int{7, 12, 45}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestExtractExcludesSerial(t *testing.T) {
	got := ExtractNumberTokens("12 34 56 s/n 123456", []string{"123456"})
	want := []int{12, 34, 56}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestExtractDropsOutOfRange(t *testing.T) {
	if got := ExtractNumberTokens("95 0 91", nil); len(got) != 0 {
		t.Fatalf("expected no numbers got %v", got)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	got := ExtractNumberTokens("42 noise 42 42", nil)
	if !reflect.DeepEqual(got, []int{42}) {
		t.Fatalf("expected [42] got %v", got)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	if got := ExtractNumberTokens("", nil); len(got) != 0 {
		t.Fatalf("expected empty result got %v", got)
	}
}

func TestExtractFromAnnotatedSource(t *testing.T) {
	src := AnnotatedTokens([]TokenAnnotation{
		{Text: "7", Box: image.Rect(0, 0, 10, 10)},
		{Text: "23", Box: image.Rect(20, 0, 30, 10)},
		{Text: "xx", Box: image.Rect(40, 0, 50, 10)},
	})
	got := ExtractFromSource(src, nil)
	want := []int{7, 23}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestWholeTextSourceFallback(t *testing.T) {
	src := WholeText("5 18")
	if src.Annotated() {
		t.Fatalf("whole text source should not be annotated")
	}
	got := ExtractFromSource(src, nil)
	if !reflect.DeepEqual(got, []int{5, 18}) {
		t.Fatalf("expected [5 18] got %v", got)
	}
}
