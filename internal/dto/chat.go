package dto

// PostChatMessageRequest posts to the class representative lobby.
type PostChatMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}
