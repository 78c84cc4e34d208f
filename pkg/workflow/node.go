package workflow

import "fmt"

// NodeID names one step of the document workflow.
type NodeID int

const (
	NodeClassifyDocType NodeID = iota + 1
	NodeValidateDocType
	NodeVerifyClassification
	NodeReceiveVerificationInput
	NodeProcessVerificationResponse
	NodeAskManualDocTypeSelection
	NodeReceiveManualDocTypeInput
	NodeProcessManualDocTypeSelection
	NodeAskRequiredFields
	NodeReceiveUserInput
	NodeCheckUserInputPolicy
	NodeParseUserInput
	NodeInformViolation
	NodeCreateDocument
)

var nodeNames = map[NodeID]string{
	NodeClassifyDocType:               "classify_doc_type",
	NodeValidateDocType:               "validate_doc_type",
	NodeVerifyClassification:          "verify_classification",
	NodeReceiveVerificationInput:      "receive_verification_input",
	NodeProcessVerificationResponse:   "process_verification_response",
	NodeAskManualDocTypeSelection:     "ask_manual_doc_type_selection",
	NodeReceiveManualDocTypeInput:     "receive_manual_doc_type_input",
	NodeProcessManualDocTypeSelection: "process_manual_doc_type_selection",
	NodeAskRequiredFields:             "ask_required_fields",
	NodeReceiveUserInput:              "receive_user_input",
	NodeCheckUserInputPolicy:          "check_user_input_policy",
	NodeParseUserInput:                "parse_user_input",
	NodeInformViolation:               "inform_violation",
	NodeCreateDocument:                "create_choan_document",
}

// String returns the wire name used in API responses and snapshots.
func (n NodeID) String() string {
	if name, ok := nodeNames[n]; ok {
		return name
	}

	return fmt.Sprintf("NodeID(%d)", int(n))
}

// IsSuspendPoint reports whether the workflow pauses for user input before running n.
func (n NodeID) IsSuspendPoint() bool {
	switch n {
	case NodeReceiveVerificationInput, NodeReceiveManualDocTypeInput, NodeReceiveUserInput:
		return true
	default:
		return false
	}
}

// ReplyKind is the state field a resumed reply is written to.
func (n NodeID) ReplyKind() ReplyKind {
	if n == NodeReceiveUserInput {
		return ReplyUser
	}

	return ReplyVerification
}

// ParseNodeID maps a wire name back to its NodeID.
func ParseNodeID(name string) (NodeID, error) {
	for id, n := range nodeNames {
		if n == name {
			return id, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownNode, name)
}

// ReplyKind selects which state field a user's reply fills on resume.
type ReplyKind string

const (
	ReplyUser         ReplyKind = "user_reply"
	ReplyVerification ReplyKind = "verification_reply"
)

func (k ReplyKind) IsValid() bool {
	return k == ReplyUser || k == ReplyVerification
}
