package domain

const (
	MailTypeCreateUser  = "create_user"
	MailTypeRunFinished = "run_finished"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName        string `json:"fullName"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	FacilitatorName string `json:"facilitatorName"`
}

type RunFinishedMailData struct {
	FullName             string     `json:"fullName"`
	RunID                int64      `json:"runID"`
	CatalogName          string     `json:"catalogName"`
	Status               RunStatus  `json:"status"`
	StopReason           StopReason `json:"stopReason"`
	Generations          int        `json:"generations"`
	BestFitness          float64    `json:"bestFitness"`
	RoomConflicts        int        `json:"roomConflicts"`
	FacilitatorConflicts int        `json:"facilitatorConflicts"`
	RoomSizeViolations   int        `json:"roomSizeViolations"`
	SpecialViolations    int        `json:"specialViolations"`
	Error                string     `json:"error"`
}
