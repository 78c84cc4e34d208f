package models

import "strings"

// DocumentType names one of the supported draft documents.
type DocumentType string

const (
	SalesVisitReport           DocumentType = "영업방문 결과보고서"
	ProductBriefingApplication DocumentType = "제품설명회 시행 신청서"
	ProductBriefingReport      DocumentType = "제품설명회 시행 결과보고서"

	// ClassificationFailedMarker is stored when the classifier could not produce a usable label.
	ClassificationFailedMarker DocumentType = "분류 실패"
)

// DocumentTypes lists the supported types in menu order.
var DocumentTypes = []DocumentType{
	SalesVisitReport,
	ProductBriefingApplication,
	ProductBriefingReport,
}

// IsValid reports whether d is one of the supported document types.
func (d DocumentType) IsValid() bool {
	for _, t := range DocumentTypes {
		if d == t {
			return true
		}
	}

	return false
}

func (d DocumentType) String() string {
	return string(d)
}

// Compact returns the type name without spaces, as used in output file names.
func (d DocumentType) Compact() string {
	return strings.ReplaceAll(string(d), " ", "")
}
