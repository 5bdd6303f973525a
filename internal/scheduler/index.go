package scheduler

import (
	"fmt"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

// catalogIndex 把名字映射到目录中的记录，每次运行只构建一次
type catalogIndex struct {
	activities   map[string]*domain.Activity
	rooms        map[string]*domain.Room
	slots        map[domain.TimeSlot]int
	facilitators map[string]struct{}
}

func newCatalogIndex(c *domain.Catalog) *catalogIndex {
	idx := &catalogIndex{
		activities:   make(map[string]*domain.Activity, len(c.Activities)),
		rooms:        make(map[string]*domain.Room, len(c.Rooms)),
		slots:        make(map[domain.TimeSlot]int, len(c.TimeSlots)),
		facilitators: make(map[string]struct{}, len(c.Facilitators)),
	}

	for i := range c.Activities {
		idx.activities[c.Activities[i].Name] = &c.Activities[i]
	}
	for i := range c.Rooms {
		idx.rooms[c.Rooms[i].Name] = &c.Rooms[i]
	}
	for i, slot := range c.TimeSlots {
		idx.slots[slot] = i
	}
	for _, f := range c.Facilitators {
		idx.facilitators[f.Name] = struct{}{}
	}

	return idx
}

// 以下查找失败意味着排班本身已经不合法，属于程序错误，直接 panic

func (idx *catalogIndex) activity(name string) *domain.Activity {
	act, ok := idx.activities[name]
	if !ok {
		panic(fmt.Sprintf("scheduler: 活动 %q 不在目录中", name))
	}
	return act
}

func (idx *catalogIndex) room(name string) *domain.Room {
	room, ok := idx.rooms[name]
	if !ok {
		panic(fmt.Sprintf("scheduler: 教室 %q 不在目录中", name))
	}
	return room
}

func (idx *catalogIndex) slot(slot domain.TimeSlot) int {
	i, ok := idx.slots[slot]
	if !ok {
		panic(fmt.Sprintf("scheduler: 时间段 %q 不在目录中", slot))
	}
	return i
}

func (idx *catalogIndex) facilitator(name string) string {
	if _, ok := idx.facilitators[name]; !ok {
		panic(fmt.Sprintf("scheduler: 负责人 %q 不在目录中", name))
	}
	return name
}
