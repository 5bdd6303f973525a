package domain

import "time"

type Activity struct {
	Name               string   `json:"name" yaml:"name" validate:"required"`
	ExpectedEnrollment int      `json:"expectedEnrollment" yaml:"expectedEnrollment" validate:"required,min=1"`
	Preferred          []string `json:"preferred" yaml:"preferred" validate:"dive,required"`
	Others             []string `json:"others" yaml:"others" validate:"dive,required"`
	NeedsLab           bool     `json:"needsLab" yaml:"needsLab"`
	NeedsProjector     bool     `json:"needsProjector" yaml:"needsProjector"`
}

type Room struct {
	Name         string `json:"name" yaml:"name" validate:"required"`
	Capacity     int    `json:"capacity" yaml:"capacity" validate:"required,min=1"`
	HasLab       bool   `json:"hasLab" yaml:"hasLab"`
	HasProjector bool   `json:"hasProjector" yaml:"hasProjector"`
}

type Facilitator struct {
	Name string `json:"name" yaml:"name" validate:"required"`
}

// TimeSlot 是时间段的标签，时间段之间的先后顺序由其在 Catalog.TimeSlots 中的位置决定
type TimeSlot string

// Catalog 是一次排班所使用的全部静态数据，排班过程中只读
type Catalog struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name" yaml:"name" validate:"required"`
	Description  string        `json:"description" yaml:"description"`
	Activities   []Activity    `json:"activities" yaml:"activities" validate:"required,min=1,dive"`
	Rooms        []Room        `json:"rooms" yaml:"rooms" validate:"required,min=1,dive"`
	TimeSlots    []TimeSlot    `json:"timeSlots" yaml:"timeSlots" validate:"required,min=1,dive,required"`
	Facilitators []Facilitator `json:"facilitators" yaml:"facilitators" validate:"required,min=1,dive"`
	CreatedAt    time.Time     `json:"createdAt" yaml:"-"`
	Version      int32         `json:"-" yaml:"-"`
}

// CatalogMeta 是不包含具体数据的目录信息，用于列表展示
type CatalogMeta struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
