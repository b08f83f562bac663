package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	if !s.Changed("k", Sum([]byte("a"))) {
		t.Fatal("unknown key should count as changed")
	}
	s.Record("k", Sum([]byte("a")))
	if s.Changed("k", Sum([]byte("a"))) {
		t.Error("same checksum should not count as changed")
	}
	if !s.Changed("k", Sum([]byte("b"))) {
		t.Error("new checksum should count as changed")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
