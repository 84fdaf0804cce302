package model

import "fmt"

const (
	SellersTable           = "Sellers"
	AssignmentsTable       = "Assignments"
	AssignmentHistoryTable = "AssignmentHistory"
	OperatorsTable         = "Operators"
)

type OperatorItem struct {
	Email        string `dynamodbav:"email"`
	OperatorID   string `dynamodbav:"operatorId"`
	Name         string `dynamodbav:"name"`
	PasswordHash string `dynamodbav:"passwordHash"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

func AssignmentHistoryPK(conversationID, assignedAt string) string {
	return fmt.Sprintf("%s#%s", conversationID, assignedAt)
}
