package dto

// AskSourceRequest is the inbound proxy payload. Field names follow the web client.
type AskSourceRequest struct {
	Prompt         string `json:"prompt" validate:"required"`
	ConversationId string `json:"conversationId" validate:"omitempty,uuid"`
	ProjectId      string `json:"projectId" validate:"required"`
	SearchMode     string `json:"searchMode"`
	Limit          *int   `json:"limit,omitempty"`
	DenseLimit     *int   `json:"denseLimit,omitempty"`
	SparseLimit    *int   `json:"sparseLimit,omitempty"`
}

type AskSourceResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
