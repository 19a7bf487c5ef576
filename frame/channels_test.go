package frame

import "testing"

func TestParseChannelAssignment(t *testing.T) {
	tests := []struct {
		code    uint8
		want    ChannelAssignment
		wantErr bool
	}{
		{0, ChannelsIndependent1, false},
		{7, ChannelsIndependent8, false},
		{8, ChannelsLeftSide, false},
		{9, ChannelsRightSide, false},
		{10, ChannelsMidSide, false},
		{11, 0, true},
		{15, 0, true},
	}
	for _, tt := range tests {
		got, err := parseChannelAssignment(tt.code)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseChannelAssignment(%d): want error, got nil", tt.code)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseChannelAssignment(%d): %v", tt.code, err)
		}
		if got != tt.want {
			t.Fatalf("parseChannelAssignment(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestChannelAssignmentCount(t *testing.T) {
	if got := ChannelsIndependent2.Count(); got != 2 {
		t.Fatalf("ChannelsIndependent2.Count() = %d, want 2", got)
	}
	if got := ChannelsLeftSide.Count(); got != 2 {
		t.Fatalf("ChannelsLeftSide.Count() = %d, want 2", got)
	}
}

func TestChannelAssignmentIsIndependent(t *testing.T) {
	if !ChannelsIndependent8.IsIndependent() {
		t.Fatalf("ChannelsIndependent8.IsIndependent() = false")
	}
	if ChannelsMidSide.IsIndependent() {
		t.Fatalf("ChannelsMidSide.IsIndependent() = true")
	}
}

func TestRecomposeLeftSide(t *testing.T) {
	left := []int32{100, 200, 300}
	side := []int32{10, 20, 30} // left - right
	dst := [][]int32{left, side}
	ChannelsLeftSide.Recompose(dst, 3)
	want := []int32{90, 180, 270} // right = left - side
	for i := range want {
		if dst[1][i] != want[i] {
			t.Fatalf("right[%d] = %d, want %d", i, dst[1][i], want[i])
		}
	}
}

func TestRecomposeRightSide(t *testing.T) {
	side := []int32{10, 20, 30} // left - right
	right := []int32{90, 180, 270}
	dst := [][]int32{side, right}
	ChannelsRightSide.Recompose(dst, 3)
	want := []int32{100, 200, 300} // left = side + right
	for i := range want {
		if dst[0][i] != want[i] {
			t.Fatalf("left[%d] = %d, want %d", i, dst[0][i], want[i])
		}
	}
}

func TestRecomposeMidSide(t *testing.T) {
	left := int32(100)
	right := int32(80)
	mid := (left + right) >> 1
	side := left - right

	dst := [][]int32{{mid}, {side}}
	ChannelsMidSide.Recompose(dst, 1)
	if dst[0][0] != left {
		t.Fatalf("recomposed left = %d, want %d", dst[0][0], left)
	}
	if dst[1][0] != right {
		t.Fatalf("recomposed right = %d, want %d", dst[1][0], right)
	}
}

func TestExtraBits(t *testing.T) {
	if got := ChannelsLeftSide.ExtraBits(1); got != 1 {
		t.Fatalf("ChannelsLeftSide.ExtraBits(1) = %d, want 1", got)
	}
	if got := ChannelsLeftSide.ExtraBits(0); got != 0 {
		t.Fatalf("ChannelsLeftSide.ExtraBits(0) = %d, want 0", got)
	}
	if got := ChannelsIndependent2.ExtraBits(0); got != 0 {
		t.Fatalf("ChannelsIndependent2.ExtraBits(0) = %d, want 0", got)
	}
}
