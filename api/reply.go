package api

import (
	"fmt"

	"github.com/papercomputeco/factorychat/pkg/rooms"
	"github.com/papercomputeco/factorychat/pkg/utils"
)

const titleRunes = 20

// summarizeTitle derives a room title from the first question.
func summarizeTitle(question string) string {
	title := utils.CollapseSpace(question)
	if title == "" {
		return rooms.DefaultName
	}
	return utils.Truncate(title, titleRunes)
}

func defaultReply(question string) string {
	return fmt.Sprintf("'%s' 문의를 확인했습니다.\n\n"+
		"- 전체 라인 가동률: 92%%\n"+
		"- 설비 이상 알람: 없음\n"+
		"- 다음 정기 점검: 내일 09:00\n", summarizeTitle(question))
}

// splitRunes cuts s into pieces of at most n runes.
func splitRunes(s string, n int) []string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return []string{s}
	}

	out := make([]string, 0, len(runes)/n+1)
	for len(runes) > 0 {
		end := min(n, len(runes))
		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}
	return out
}

// splitName cuts a room name in two so that clients have to join name
// fragments.
func splitName(name string) []string {
	runes := []rune(name)
	if len(runes) < 2 {
		return []string{name}
	}
	half := len(runes) / 2
	return []string{string(runes[:half]), string(runes[half:])}
}
