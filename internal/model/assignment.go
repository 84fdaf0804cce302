package model

type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// AssignmentItem binds a conversation to a seller. The Assignments table keeps one
// row per conversation; completed bindings are copied to AssignmentHistory.
type AssignmentItem struct {
	ConversationID string           `dynamodbav:"conversationId"`
	SellerID       string           `dynamodbav:"sellerId"`
	Status         AssignmentStatus `dynamodbav:"status"`
	AssignedAt     string           `dynamodbav:"assignedAt"`
	CompletedAt    string           `dynamodbav:"completedAt,omitempty"`
}

type AssignmentHistoryItem struct {
	PK             string `dynamodbav:"pk"`
	ConversationID string `dynamodbav:"conversationId"`
	SellerID       string `dynamodbav:"sellerId"`
	AssignedAt     string `dynamodbav:"assignedAt"`
	CompletedAt    string `dynamodbav:"completedAt"`
}
