package main

import "testing"

func TestPageSection(t *testing.T) {
	cases := []struct {
		raw   string
		page  int
		paged bool
		want  string
	}{
		// Document pages always get the header, single-page ones included.
		{"Date: 01/02/2024", 1, true, "Page 1:\nDate: 01/02/2024"},
		{"Total: 500", 3, true, "Page 3:\nTotal: 500"},
		// Plain image inputs never do.
		{"Date: 01/02/2024", 1, false, "Date: 01/02/2024"},
	}
	for _, c := range cases {
		if got := pageSection(c.raw, c.page, c.paged); got != c.want {
			t.Fatalf("pageSection(%q, %d, %v) = %q, want %q", c.raw, c.page, c.paged, got, c.want)
		}
	}
}
