package scheduler

import "strings"

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// 名字以 Roman 或 Beach 开头的教室属于同一组教学楼
func inRomanOrBeach(room string) bool {
	return strings.HasPrefix(room, "Roman") || strings.HasPrefix(room, "Beach")
}
