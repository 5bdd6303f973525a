package domain

// Assignment 表示某个活动被安排到的 (教室, 时间段, 负责人)
type Assignment struct {
	Activity    string   `json:"activity" validate:"required"`
	Room        string   `json:"room" validate:"required"`
	TimeSlot    TimeSlot `json:"timeSlot" validate:"required"`
	Facilitator string   `json:"facilitator" validate:"required"`
}

// Schedule 按目录中活动的顺序为每个活动保存一个 Assignment
type Schedule []Assignment

// Clone 返回一份深拷贝，保证种群中的各个个体互不共享底层数组
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

type FitnessResult struct {
	Fitness              float64 `json:"fitness"`
	RoomConflicts        int     `json:"roomConflicts"`
	FacilitatorConflicts int     `json:"facilitatorConflicts"`
	RoomSizeViolations   int     `json:"roomSizeViolations"`
	SpecialViolations    int     `json:"specialViolations"`
}
