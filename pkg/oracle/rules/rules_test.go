package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle"
	"github.com/dukex/docflow/pkg/oracle/rules"
	"github.com/dukex/docflow/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeparate(t *testing.T) {
	o := rules.New()

	got, err := o.Separate(t.Context(), "영업방문 결과보고서 작성해줘. 방문제목: 신제품 소개")
	require.NoError(t, err)
	assert.Equal(t, "영업방문 결과보고서 작성해줘", got.DocumentType)
	assert.Equal(t, "방문제목: 신제품 소개", got.Content)

	got, err = o.Separate(t.Context(), "제품설명회 신청서 만들어줘")
	require.NoError(t, err)
	assert.Equal(t, "제품설명회 신청서 만들어줘", got.DocumentType)
	assert.Empty(t, got.Content)

	got, err = o.Separate(t.Context(), "안녕하세요")
	require.NoError(t, err)
	assert.Empty(t, got.DocumentType)
	assert.Equal(t, "안녕하세요", got.Content)
}

func TestClassify(t *testing.T) {
	o := rules.New()

	tests := map[string]string{
		"영업방문 결과보고서 작성해줘":  string(models.SalesVisitReport),
		"제품설명회 시행 신청서 부탁해": string(models.ProductBriefingApplication),
		"제품설명회 결과 보고서":     string(models.ProductBriefingReport),
		"점심 메뉴 추천해줘":       rules.Unclassified,
	}

	for input, want := range tests {
		got, err := o.Classify(t.Context(), input)
		require.NoError(t, err)
		assert.Equal(t, want, got.Label, input)
	}
}

func TestClassifyIntent(t *testing.T) {
	o := rules.New()

	for _, reply := range []string{"네", "YES", "맞습니다", "정확해요"} {
		got, _ := o.ClassifyIntent(t.Context(), reply)
		assert.Equal(t, "긍정", got, reply)
	}

	for _, reply := range []string{"아니요", "no", "틀렸습니다", "다릅니다"} {
		got, _ := o.ClassifyIntent(t.Context(), reply)
		assert.Equal(t, "부정", got, reply)
	}

	got, _ := o.ClassifyIntent(t.Context(), "음...")
	assert.NotContains(t, got, "긍정")
	assert.NotContains(t, got, "부정")
}

func TestExtract(t *testing.T) {
	o := rules.New()

	reply, err := o.Extract(t.Context(), oracle.ExtractionRequest{
		Fields:  []string{"방문제목", "직원성명"},
		Content: "- 방문제목: 신제품 소개\n직원 성명 : 김철수, 이영희\n기타: 무시",
	})
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(reply), &fields))
	assert.Equal(t, map[string]string{"방문제목": "신제품 소개", "직원성명": "김철수, 이영희"}, fields)

	reply, err = o.Extract(t.Context(), oracle.ExtractionRequest{Fields: []string{"방문제목"}, Content: "그냥 텍스트"})
	require.NoError(t, err)
	_, err = oracle.ExtractJSON(reply)
	assert.ErrorIs(t, err, oracle.ErrNoJSON)
}

func TestCheckPolicy(t *testing.T) {
	o := rules.New()

	report, err := o.CheckPolicy(t.Context(), "서울병원 방문하여 신제품 소개")
	require.NoError(t, err)
	assert.Equal(t, "OK", report)

	report, err = o.CheckPolicy(t.Context(), "자사 판촉물 전달 및 상품권 증정")
	require.NoError(t, err)
	assert.True(t, policy.IsActualViolation(report))
	assert.Len(t, policy.ParseViolations(report), 2)
}
