package dbtypes

import "testing"

func TestStringArrayRoundTrip(t *testing.T) {
	in := StringArray{"screen", "with space", `quo"te`}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out StringArray
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(out) != 3 || out[1] != "with space" || out[2] != `quo"te` {
		t.Fatalf("unexpected round trip %#v", out)
	}
}

func TestStringArrayScanNilAndBytes(t *testing.T) {
	var a StringArray
	if err := a.Scan(nil); err != nil || len(a) != 0 {
		t.Fatalf("nil scan should yield empty array, got %#v err=%v", a, err)
	}
	if err := a.Scan([]byte("{a,b}")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if len(a) != 2 || a[0] != "a" {
		t.Fatalf("unexpected %#v", a)
	}
	var nilArr StringArray
	if v, _ := nilArr.Value(); v != "{}" {
		t.Fatalf("nil array should encode as {}, got %v", v)
	}
}

func TestStringArrayContains(t *testing.T) {
	a := StringArray{"Supplier", " urgent "}
	if !a.Contains("supplier") || !a.Contains("URGENT") {
		t.Fatal("expected case-insensitive match")
	}
	if a.Contains("other") {
		t.Fatal("unexpected match")
	}
}
