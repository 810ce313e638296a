package ordering_test

import (
	"testing"

	"github.com/nrfta/seekpage"
	"github.com/nrfta/seekpage/ordering"
)

var allowed = map[string]bool{"category": true, "price": true, "id": true}

func TestParse_Success(t *testing.T) {
	cases := []struct {
		in   string
		want paging.OrderingSpec
	}{
		{"category,-price,id", paging.OrderingSpec{
			{Field: "category", Dir: paging.Asc},
			{Field: "price", Dir: paging.Desc},
			{Field: "id", Dir: paging.Asc},
		}},
		{" category , -price ", paging.OrderingSpec{
			{Field: "category", Dir: paging.Asc},
			{Field: "price", Dir: paging.Desc},
		}},
		{"-id", paging.OrderingSpec{{Field: "id", Dir: paging.Desc}}},
	}

	for _, tc := range cases {
		got, err := ordering.Parse(tc.in, allowed)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse_Failure(t *testing.T) {
	cases := []string{
		"",
		"   ",
		",",
		"category,",
		"-",
		"category,secret",
		"unknown_field",
	}

	for _, in := range cases {
		if _, err := ordering.Parse(in, allowed); err == nil {
			t.Fatalf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestParse_DisallowedFieldListsSafelist(t *testing.T) {
	_, err := ordering.Parse("secret", allowed)
	if err == nil {
		t.Fatal("expected error")
	}
	oe, ok := err.(*paging.OrderingError)
	if !ok {
		t.Fatalf("expected *paging.OrderingError, got %T", err)
	}
	if oe.Field != "secret" {
		t.Fatalf("Field = %q, want %q", oe.Field, "secret")
	}
	want := []string{"category", "id", "price"}
	if len(oe.Allowed) != len(want) {
		t.Fatalf("Allowed = %v, want %v", oe.Allowed, want)
	}
	for i := range want {
		if oe.Allowed[i] != want[i] {
			t.Fatalf("Allowed = %v, want %v", oe.Allowed, want)
		}
	}
}

func TestParse_PreservesInputOrder(t *testing.T) {
	got, err := ordering.Parse("id,-price,category", allowed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"id", "price", "category"}
	if got.Fields()[0] != want[0] || got.Fields()[1] != want[1] || got.Fields()[2] != want[2] {
		t.Fatalf("Fields() = %v, want %v", got.Fields(), want)
	}
}
