package qa

import (
	"fmt"

	"github.com/mohammad-safakhou/govqa/internal/store"
)

// PromptPair is the two-segment instruction consumed once by the LLM client.
type PromptPair struct {
	System string
	User   string
}

// UnknownAnswer is the fixed sentence the model is instructed to reply with
// when no knowledge covers the question. The legacy UI special-cases it, so
// the wording must stay recognizable.
const UnknownAnswer = "该问题暂未收录，建议咨询当地政务服务中心"

const systemInstruction = `你是政务服务智能问答助手，仅依据官方发布的政策文件和办事指南提供回答，确保信息准确、权威、简洁。
禁止编造信息、禁止解读未公开政策。如果没有找到相关知识，统一回复："` + UnknownAnswer + `"。`

// BuildPrompt produces the system and user instructions for a question and an
// optional matched entry. Without an entry the question goes alone and the
// system instruction's "not covered" clause governs the model's behavior.
func BuildPrompt(question string, entry *store.KnowledgeEntry) PromptPair {
	if entry == nil {
		return PromptPair{
			System: systemInstruction,
			User:   fmt.Sprintf("用户问：'%s'", question),
		}
	}
	return PromptPair{
		System: systemInstruction,
		User: fmt.Sprintf(`用户问：'%s'
请基于以下官方知识回答，按结构化格式组织内容：
官方知识：%s
来源：%s`, question, entry.Answer, entry.Source),
	}
}
