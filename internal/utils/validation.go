package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator 返回包内共用的 validator，handler 会在上面注册翻译
func Validator() *validator.Validate {
	return validate
}

func ValidateCatalog(c *domain.Catalog) error {
	if c == nil {
		return errors.New("目录不能为空")
	}
	if err := validate.Struct(c); err != nil {
		return err
	}

	// 检查名字是否重复
	activityNames := make(map[string]bool, len(c.Activities))
	for _, act := range c.Activities {
		if activityNames[act.Name] {
			return fmt.Errorf("活动 %s 重复", act.Name)
		}
		activityNames[act.Name] = true
	}

	roomNames := make(map[string]bool, len(c.Rooms))
	for _, room := range c.Rooms {
		if roomNames[room.Name] {
			return fmt.Errorf("教室 %s 重复", room.Name)
		}
		roomNames[room.Name] = true
	}

	slots := make(map[domain.TimeSlot]bool, len(c.TimeSlots))
	for _, slot := range c.TimeSlots {
		if slots[slot] {
			return fmt.Errorf("时间段 %s 重复", slot)
		}
		slots[slot] = true
	}

	facilitators := make(map[string]bool, len(c.Facilitators))
	for _, f := range c.Facilitators {
		if facilitators[f.Name] {
			return fmt.Errorf("负责人 %s 重复", f.Name)
		}
		facilitators[f.Name] = true
	}

	// 活动的候选负责人必须都在负责人列表中
	for _, act := range c.Activities {
		for _, name := range act.Preferred {
			if !facilitators[name] {
				return fmt.Errorf("活动 %s 的首选负责人 %s 不在负责人列表中", act.Name, name)
			}
		}
		for _, name := range act.Others {
			if !facilitators[name] {
				return fmt.Errorf("活动 %s 的备选负责人 %s 不在负责人列表中", act.Name, name)
			}
		}
	}

	return nil
}

// ValidateSchedule 检查排班是否按目录顺序为每个活动恰好安排一次，并且引用的教室、时间段、负责人都存在
func ValidateSchedule(s domain.Schedule, c *domain.Catalog) error {
	if len(s) != len(c.Activities) {
		return fmt.Errorf("排班中的安排数量 %d 和活动数量 %d 不匹配", len(s), len(c.Activities))
	}

	rooms := make(map[string]bool, len(c.Rooms))
	for _, room := range c.Rooms {
		rooms[room.Name] = true
	}
	slots := make(map[domain.TimeSlot]bool, len(c.TimeSlots))
	for _, slot := range c.TimeSlots {
		slots[slot] = true
	}
	facilitators := make(map[string]bool, len(c.Facilitators))
	for _, f := range c.Facilitators {
		facilitators[f.Name] = true
	}

	for i, a := range s {
		if a.Activity != c.Activities[i].Name {
			return fmt.Errorf("第 %d 项应为活动 %s，实际为 %s", i+1, c.Activities[i].Name, a.Activity)
		}
		if !rooms[a.Room] {
			return fmt.Errorf("第 %d 项的教室 %s 不存在", i+1, a.Room)
		}
		if !slots[a.TimeSlot] {
			return fmt.Errorf("第 %d 项的时间段 %s 不存在", i+1, a.TimeSlot)
		}
		if !facilitators[a.Facilitator] {
			return fmt.Errorf("第 %d 项的负责人 %s 不存在", i+1, a.Facilitator)
		}
	}

	return nil
}
