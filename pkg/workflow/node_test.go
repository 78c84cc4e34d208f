package workflow

import (
	"testing"

	"github.com/dukex/docflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID_WireNames(t *testing.T) {
	for id, name := range nodeNames {
		parsed, err := ParseNodeID(name)
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.Equal(t, name, id.String())
	}

	_, err := ParseNodeID("start")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestNodeID_SuspendPoints(t *testing.T) {
	var suspendPoints []string

	for id := NodeClassifyDocType; id <= NodeCreateDocument; id++ {
		if id.IsSuspendPoint() {
			suspendPoints = append(suspendPoints, id.String())
		}
	}

	assert.Equal(t, []string{"receive_verification_input", "receive_manual_doc_type_input", "receive_user_input"}, suspendPoints)
	assert.Equal(t, ReplyVerification, NodeReceiveManualDocTypeInput.ReplyKind())
	assert.Equal(t, ReplyUser, NodeReceiveUserInput.ReplyKind())
}

func TestSelectDocumentType(t *testing.T) {
	cases := []struct {
		reply string
		want  models.DocumentType
	}{
		{"1", models.SalesVisitReport},
		{"2", models.ProductBriefingApplication},
		{" 3 ", models.ProductBriefingReport},
		{"제품설명회 시행 신청서", models.ProductBriefingApplication},
		{"영업방문 결과보고서", models.SalesVisitReport},
	}

	for _, tc := range cases {
		got, ok := SelectDocumentType(tc.reply)
		assert.True(t, ok, tc.reply)
		assert.Equal(t, tc.want, got, tc.reply)
	}

	for _, reply := range []string{"4", "종료", "5", "영업방문", ""} {
		_, ok := SelectDocumentType(reply)
		assert.False(t, ok, reply)
	}

	assert.True(t, IsExitSelection("4"))
	assert.True(t, IsExitSelection("종료"))
	assert.False(t, IsExitSelection("3"))
}

func TestWithReply(t *testing.T) {
	state := models.NewWorkflowState("요청")

	verified := WithReply(state, ReplyVerification, "네")
	assert.Equal(t, "네", verified.VerificationReply)
	assert.Equal(t, "네", verified.LatestMessage())
	assert.Len(t, state.Messages, 1)

	filled := WithReply(state, ReplyUser, "방문제목: A")
	assert.Equal(t, "방문제목: A", filled.UserReply)
	assert.Empty(t, filled.VerificationReply)
}
