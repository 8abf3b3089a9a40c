// Package news はSDGニュースフィードの記事の分類と参照を提供する。
package news

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/hitoshi/sigmatch/internal/catalog"
)

// sdgMentionPattern は "SDG 4"、"SDG#13"、"Goal 7" のような言及に一致する。
var sdgMentionPattern = regexp.MustCompile(`(?i)\b(?:SDGs?|Goal)\s*#?\s*(\d{1,2})\b`)

// TagSDGs はテキスト中で言及されているSDG IDを昇順・重複なしで返す。
// 1から17の範囲外の番号は無視する。
func TagSDGs(texts ...string) []int {
	seen := make(map[int]struct{})
	for _, text := range texts {
		for _, m := range sdgMentionPattern.FindAllStringSubmatch(text, -1) {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if _, ok := catalog.Get(id); !ok {
				continue
			}
			seen[id] = struct{}{}
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
