package agent

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ilka-rag-api/internal/application/chunking"
	"ilka-rag-api/internal/domain/entity"
)

const (
	minAnswerLength     = 50
	minCitationRate     = 0.5
	lackOfInfoMaxLength = 100
)

// Verifier 对生成的回答做引用与质量校验
// 校验是确定性的，不依赖 LLM
type Verifier struct{}

// NewVerifier 创建校验器
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify 校验回答，返回发现的问题列表与逐句引用率
// evidence 为空时跳过引用序号范围检查
func (v *Verifier) Verify(answer *entity.Answer, evidence []*entity.ScoredPassage) *entity.VerificationResult {
	var issues []string

	if len(answer.Citations) == 0 {
		issues = append(issues, "No citations found")
	}

	if len(answer.Text) < minAnswerLength {
		issues = append(issues, "Answer too short")
	}

	rate := citationRate(answer.Text)
	if rate < minCitationRate {
		issues = append(issues, fmt.Sprintf("Low citation rate: %d%%", int(math.Round(rate*100))))
	}

	lower := strings.ToLower(answer.Text)
	if strings.Contains(lower, "i don't know") && len(answer.Text) < lackOfInfoMaxLength {
		issues = append(issues, "Answer indicates lack of information")
	}

	if len(evidence) > 0 {
		if invalid := invalidCitationMarkers(answer.Text, len(evidence)); len(invalid) > 0 {
			issues = append(issues, "Invalid citation indices: "+strings.Join(invalid, ", "))
		}
	}

	return &entity.VerificationResult{
		Passed:       len(issues) == 0,
		Issues:       issues,
		CitationRate: rate,
	}
}

// citationRate 计算带 [n] 标记的句子占比
// 分句规则与切分侧保持一致
func citationRate(text string) float64 {
	sentences := chunking.SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	cited := 0
	for _, s := range sentences {
		if citationMarkerRe.MatchString(s) {
			cited++
		}
	}
	return float64(cited) / float64(len(sentences))
}

// invalidCitationMarkers 找出超出证据范围的引用标记，如 [99]
func invalidCitationMarkers(text string, evidenceCount int) []string {
	seen := make(map[int]bool)
	var invalid []string
	for _, m := range citationMarkerRe.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || seen[idx] {
			continue
		}
		seen[idx] = true
		if idx < 1 || idx > evidenceCount {
			invalid = append(invalid, "["+m[1]+"]")
		}
	}
	return invalid
}
