package domain

// Reserved node ids. Ids <= 0 are terminal/sentinel nodes outside the main
// question sequence.
const (
	// RootNodeID is where every entry event puts the user.
	RootNodeID = 1
	// CompletionNodeID is reached when the questionnaire is finished.
	CompletionNodeID = 0
	// FollowUpNodeID is reached when the user declines the questionnaire.
	FollowUpNodeID = -1
	// AwaitingOperatorNodeID loops on free text until staff respond.
	AwaitingOperatorNodeID = -2
)

// Reserved input tokens. They steer the flow and are never recorded as answers.
const (
	TokenBack          = "back"
	TokenGoBack        = "go_back"
	TokenBackToSurvey  = "back_to_survey"
	TokenGoToManager   = "go_to_manager"
	TokenNoGoToManager = "no_go_to_manager"
)

// Operator-only tokens for the staged broadcast keyboard.
const (
	TokenBroadcastConfirm = "send_to_all"
	TokenBroadcastCancel  = "do_not_send_to_all"
)

// IsBackToken reports whether token asks for the previous step.
func IsBackToken(token string) bool {
	return token == TokenBack || token == TokenGoBack
}

// IsEscalationToken reports whether token asks for a human operator.
func IsEscalationToken(token string) bool {
	return token == TokenGoToManager || token == TokenNoGoToManager
}

// IsNavigationToken reports whether token only mutates flow.
func IsNavigationToken(token string) bool {
	return IsBackToken(token) || IsEscalationToken(token) || token == TokenBackToSurvey
}

// IsTerminal reports whether id belongs to a terminal/sentinel node.
func IsTerminal(id int) bool {
	return id <= 0
}
