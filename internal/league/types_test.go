package league

import (
	"reflect"
	"testing"
	"time"
)

func TestScheduledMatch_StartsWithin(t *testing.T) {
	now := time.Date(2025, 9, 6, 18, 0, 0, 0, time.UTC)
	window := 5 * time.Minute
	tests := []struct {
		offset time.Duration
		want   bool
	}{
		{-time.Second, false},
		{0, true},
		{4 * time.Minute, true},
		{5 * time.Minute, true},
		{6 * time.Minute, false},
	}
	for _, tt := range tests {
		match := ScheduledMatch{Start: now.Add(tt.offset)}
		if got := match.StartsWithin(now, window); got != tt.want {
			t.Errorf("StartsWithin() with offset %v = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestUniqueUsers(t *testing.T) {
	got := UniqueUsers([]UserId{"1", "2"}, []UserId{"2", "", "3"}, nil, []UserId{"1"})
	if want := []UserId{"1", "2", "3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueUsers() = %v, want %v", got, want)
	}
	if got := UniqueUsers(); len(got) != 0 {
		t.Errorf("UniqueUsers() of nothing = %v", got)
	}
}
