package workflow

import (
	"fmt"
	"strings"

	"github.com/dukex/docflow/pkg/models"
)

const (
	// ExitSelection is the manual menu entry that abandons the conversation.
	ExitSelection = "종료"

	exitNumber = "4"

	DefaultFieldPrompt = "필요한 정보를 입력해주세요."
)

func verificationPrompt(docType models.DocumentType) string {
	return fmt.Sprintf("분류된 문서 타입: %s\n\n위 분류 결과가 올바른가요?", docType)
}

// SelectionMenu lists the document types by number followed by the exit entry.
func SelectionMenu() string {
	var b strings.Builder

	b.WriteString("문서 타입을 선택해주세요.\n")

	for i, docType := range models.DocumentTypes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, docType)
	}

	fmt.Fprintf(&b, "%s. %s", exitNumber, ExitSelection)

	return b.String()
}

// IsExitSelection reports whether a manual-selection reply ends the conversation.
func IsExitSelection(reply string) bool {
	reply = strings.TrimSpace(reply)

	return reply == exitNumber || reply == ExitSelection
}

// SelectDocumentType maps a manual-selection reply, a menu number or an exact type
// name, to its document type.
func SelectDocumentType(reply string) (models.DocumentType, bool) {
	reply = strings.TrimSpace(reply)

	for i, docType := range models.DocumentTypes {
		if reply == fmt.Sprint(i+1) || reply == string(docType) {
			return docType, true
		}
	}

	return "", false
}
