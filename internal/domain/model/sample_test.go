package model

import "testing"

func TestRawSampleCorners(t *testing.T) {
	s := NewRawSample([NumCorners]int{1, 2, 3, 4})
	want := map[Corner]int{FrontLeft: 1, FrontRight: 2, BackLeft: 3, BackRight: 4}
	for c, v := range want {
		if got := s.Corner(c); got != v {
			t.Fatalf("corner %s: got %d want %d", c, got, v)
		}
	}
	if s.Values() != [NumCorners]int{1, 2, 3, 4} {
		t.Fatalf("values order: got %v", s.Values())
	}
	if s.Corner(Corner(9)) != 0 {
		t.Fatalf("unknown corner should read 0")
	}
}

func TestCornerString(t *testing.T) {
	tests := []struct {
		c    Corner
		want string
	}{
		{FrontLeft, "fl"},
		{FrontRight, "fr"},
		{BackLeft, "bl"},
		{BackRight, "br"},
		{Corner(-1), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Fatalf("Corner(%d).String() = %q; want %q", tt.c, got, tt.want)
		}
	}
}
