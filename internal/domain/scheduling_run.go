package domain

import "time"

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

type StopReason string

const (
	StopReasonConverged StopReason = "converged"
	StopReasonExhausted StopReason = "exhausted"
	StopReasonCanceled  StopReason = "canceled"
)

// GenerationStats 是某一代种群的适应度统计
type GenerationStats struct {
	Generation   int     `json:"generation"`
	Best         float64 `json:"best"`
	Average      float64 `json:"average"`
	Worst        float64 `json:"worst"`
	MutationRate float64 `json:"mutationRate"`
}

// SchedulingParameters 是遗传算法的运行参数
type SchedulingParameters struct {
	PopulationSize       int     `json:"populationSize" validate:"required,min=2,max=10000"`
	MinGenerations       int     `json:"minGenerations" validate:"min=0,max=100000"`
	MaxGenerations       int     `json:"maxGenerations" validate:"min=0,max=100000"`
	StopPolicy           string  `json:"stopPolicy" validate:"required,oneof=relative cap"`
	ConvergenceThreshold float64 `json:"convergenceThreshold" validate:"min=0"`
	MutationRate         float64 `json:"mutationRate" validate:"min=0,max=1"`
	MutationDecay        float64 `json:"mutationDecay" validate:"gt=0,max=1"`
	EliteCount           int     `json:"eliteCount" validate:"min=0,max=10000"`
	Workers              int     `json:"workers" validate:"min=1,max=64"`
	Seed                 int64   `json:"seed"`
}

type SchedulingRun struct {
	ID          int64                `json:"id"`
	CatalogID   int64                `json:"catalogID"`
	CreatedBy   int64                `json:"createdBy"`
	Status      RunStatus            `json:"status"`
	Parameters  SchedulingParameters `json:"parameters"`
	Result      *FitnessResult       `json:"result"`
	Schedule    Schedule             `json:"schedule"`
	Generations int                  `json:"generations"`
	StopReason  StopReason           `json:"stopReason"`
	Error       string               `json:"error"`
	History     []GenerationStats    `json:"history,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	FinishedAt  *time.Time           `json:"finishedAt"`
	Version     int32                `json:"-"`
}

// SchedulingJob 是投递到 scheduling_queue 中的消息
type SchedulingJob struct {
	RunID int64 `json:"runID"`
}
