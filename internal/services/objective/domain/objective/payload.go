package objective

// JSON keys match the historical journal encoding so existing streams replay
// without migration.

// CreatePayload is the createObjective command and ObjectiveCreated event payload.
type CreatePayload struct {
	Title     string `json:"title"`
	Period    string `json:"period,omitempty"`
	UserID    string `json:"userId,omitempty"`
	OrgUnitID string `json:"orgUnitId,omitempty"`
}

// TitlePayload carries a new objective title.
type TitlePayload struct {
	Title string `json:"title"`
}

// PeriodPayload carries a new objective period.
type PeriodPayload struct {
	Period string `json:"period"`
}

// KeyResultAddPayload is the addKeyResult command payload.
type KeyResultAddPayload struct {
	KeyResultID string `json:"keyResultId"`
	Title       string `json:"title"`
}

// KeyResultAddedPayload is the KeyResultAdded event payload. Progress is only
// present in historical streams; the decider never sets it.
type KeyResultAddedPayload struct {
	KeyResultID string `json:"keyResultId"`
	Title       string `json:"title,omitempty"`
	Progress    *int   `json:"progress,omitempty"`
}

// KeyResultUpdatePayload is the updateKeyResult command and KeyResultUpdated
// event payload. A nil Progress means "not provided", which differs from zero.
type KeyResultUpdatePayload struct {
	KeyResultID string `json:"keyResultId"`
	Title       string `json:"title,omitempty"`
	Progress    *int   `json:"progress,omitempty"`
}

// KeyResultRefPayload addresses a key result by id.
type KeyResultRefPayload struct {
	KeyResultID string `json:"keyResultId"`
}
